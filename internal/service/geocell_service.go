package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/geo"
	"github.com/ignatzorin/agromarket-backend/internal/logger"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
)

// GeoCellStore таблица с координатами и сохранённой ячейкой.
type GeoCellStore interface {
	ListLocated(ctx context.Context) ([]repository.LocatedRow, error)
	UpdateGeoCells(ctx context.Context, cells map[uuid.UUID]string) error
}

// BackfillReport итог пересчёта по одной таблице.
type BackfillReport struct {
	Table      string
	Scanned    int
	Changed    int
	Skipped    int
	DryRun     bool
	Resolution int
}

func (r BackfillReport) String() string {
	mode := "applied"
	if r.DryRun {
		mode = "dry-run"
	}
	return fmt.Sprintf("%s: scanned=%d changed=%d skipped=%d res=%d (%s)",
		r.Table, r.Scanned, r.Changed, r.Skipped, r.Resolution, mode)
}

// GeoCellService пересчитывает geo_cell после смены разрешения сетки.
type GeoCellService struct {
	tables map[string]GeoCellStore
	order  []string
}

func NewGeoCellService(users, products GeoCellStore) *GeoCellService {
	return &GeoCellService{
		tables: map[string]GeoCellStore{"users": users, "products": products},
		order:  []string{"users", "products"},
	}
}

func (s *GeoCellService) Backfill(ctx context.Context, resolution int, dryRun bool) ([]BackfillReport, error) {
	reports := make([]BackfillReport, 0, len(s.order))
	for _, name := range s.order {
		report, err := s.backfillTable(ctx, name, s.tables[name], resolution, dryRun)
		if err != nil {
			return reports, err
		}
		logger.Log.WithField("table", name).Info(report.String())
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *GeoCellService) backfillTable(ctx context.Context, name string, store GeoCellStore, resolution int, dryRun bool) (BackfillReport, error) {
	report := BackfillReport{Table: name, DryRun: dryRun, Resolution: resolution}

	rows, err := store.ListLocated(ctx)
	if err != nil {
		return report, err
	}
	report.Scanned = len(rows)

	changed := make(map[uuid.UUID]string)
	for _, row := range rows {
		if geo.ValidateCoordinates(row.Location.Lat, row.Location.Lng) != nil {
			report.Skipped++
			continue
		}
		cell := geo.CellOf(row.Location.Lat, row.Location.Lng, resolution)
		if row.GeoCell != nil && *row.GeoCell == cell {
			continue
		}
		changed[row.ID] = cell
	}
	report.Changed = len(changed)

	if dryRun {
		return report, nil
	}
	return report, store.UpdateGeoCells(ctx, changed)
}
