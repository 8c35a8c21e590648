package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
)

const earningsTrendDays = 7

type EarningsRepository interface {
	ListingStats(ctx context.Context, farmerID uuid.UUID) ([]models.ListingEarnings, error)
	DailyRevenue(ctx context.Context, farmerID uuid.UUID, since time.Time) ([]models.DailyRevenue, error)
}

type EarningsService struct {
	repo EarningsRepository
	now  func() time.Time
}

func NewEarningsService(repo EarningsRepository) *EarningsService {
	return &EarningsService{repo: repo, now: time.Now}
}

// FarmerSummary сводка фермера: выручка по доставленным заказам, активные
// заказы, показатели объявлений и выручка за последние семь дней.
func (s *EarningsService) FarmerSummary(ctx context.Context, actor Actor) (*models.EarningsSummary, error) {
	if !actor.IsFarmer() {
		return nil, apperror.Forbidden("сводка доступна только фермерам")
	}

	listings, err := s.repo.ListingStats(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(earningsTrendDays - 1))
	daily, err := s.repo.DailyRevenue(ctx, actor.ID, since)
	if err != nil {
		return nil, mapRepoError(err)
	}

	summary := &models.EarningsSummary{
		Currency: valueobject.DefaultCurrency,
		Listings: listings,
		Trend:    make([]models.DailyRevenue, 0, earningsTrendDays),
	}
	for _, l := range listings {
		summary.TotalRevenue += l.Revenue
		summary.DeliveredOrders += l.Delivered
		summary.ActiveOrders += l.Active
		if l.Status == models.ProductStatusActive {
			summary.ActiveListings++
		}
	}
	summary.TotalRevenue = roundKopecks(summary.TotalRevenue)

	byDay := make(map[string]float64, len(daily))
	for _, d := range daily {
		byDay[d.Date] = d.Revenue
	}
	for i := 0; i < earningsTrendDays; i++ {
		date := since.AddDate(0, 0, i).Format("2006-01-02")
		summary.Trend = append(summary.Trend, models.DailyRevenue{Date: date, Revenue: roundKopecks(byDay[date])})
	}
	return summary, nil
}

func roundKopecks(v float64) float64 {
	return math.Round(v*100) / 100
}
