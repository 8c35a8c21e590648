package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/repository/common"
)

var (
	ErrReportNotFound       = errors.New("report not found")
	ErrReportAppealNotFound = errors.New("report appeal not found")
)

// ValidationOutcome результат подтверждения жалобы.
type ValidationOutcome struct {
	Report       *models.UserReport
	Strikes      int
	Suspended    bool
	PausedOrders []uuid.UUID
}

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *models.UserReport) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO user_reports (reported_user_id, reporter_id, reason_code, description, evidence_media_links)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at
	`, report.ReportedUserID, report.ReporterID, report.ReasonCode, report.Description, report.EvidenceMediaLinks).
		Scan(&report.ID, &report.Status, &report.CreatedAt)
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UserReport, error) {
	return common.GetByID[models.UserReport](ctx, r.db, "user_reports", id, ErrReportNotFound)
}

// List жалобы для модерации, старые первыми. Пустой status отдаёт все.
func (r *ReportRepository) List(ctx context.Context, status string, limit, offset int) ([]models.UserReport, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM user_reports`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("report repository: count %w", err)
	}

	args = append(args, limit, offset)
	query := `SELECT * FROM user_reports` + where +
		fmt.Sprintf(` ORDER BY created_at ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	reports := make([]models.UserReport, 0)
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("report repository: list %w", err)
	}
	return reports, total, nil
}

// Validate подтверждает жалобу, начисляет страйк и при достижении порога
// блокирует пользователя с приостановкой заказов. Всё в одной транзакции;
// жалоба, уже рассмотренная другим запросом, даёт common.ErrStatusConflict.
func (r *ReportRepository) Validate(ctx context.Context, id, admin uuid.UUID, note *string, threshold int) (*ValidationOutcome, error) {
	outcome := &ValidationOutcome{}
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		report, err := closeReport(ctx, tx, id, admin, note, valueobject.ReportStatusValidated)
		if err != nil {
			return err
		}
		outcome.Report = report

		var user struct {
			Strikes int    `db:"strikes_count"`
			Status  string `db:"status"`
		}
		if err := tx.GetContext(ctx, &user, `
			UPDATE users SET strikes_count = strikes_count + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING strikes_count, status
		`, report.ReportedUserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("report repository: add strike %w", err)
		}
		outcome.Strikes = user.Strikes

		if user.Strikes >= threshold && user.Status == models.UserStatusActive {
			if err := setUserStatus(ctx, tx, report.ReportedUserID, models.UserStatusSuspended); err != nil {
				return err
			}
			paused, err := pauseUserOrders(ctx, tx, report.ReportedUserID, &admin)
			if err != nil {
				return err
			}
			outcome.Suspended = true
			outcome.PausedOrders = paused
		}

		return insertAudit(ctx, tx, auditEntry(&admin, AuditReportValidated, "report", id.String(), models.JSONMap{
			"reportedUserId": report.ReportedUserID.String(),
			"strikes":        user.Strikes,
			"suspended":      outcome.Suspended,
		}))
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Reject отклоняет жалобу без последствий для пользователя.
func (r *ReportRepository) Reject(ctx context.Context, id, admin uuid.UUID, note *string) (*models.UserReport, error) {
	var report *models.UserReport
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		report, err = closeReport(ctx, tx, id, admin, note, valueobject.ReportStatusRejected)
		if err != nil {
			return err
		}
		return insertAudit(ctx, tx, auditEntry(&admin, AuditReportRejected, "report", id.String(), nil))
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func closeReport(ctx context.Context, tx *sqlx.Tx, id, admin uuid.UUID, note *string, to valueobject.ReportStatus) (*models.UserReport, error) {
	var report models.UserReport
	err := tx.GetContext(ctx, &report, `
		UPDATE user_reports
		SET status = $2, validated_by_user_id = $3, validated_at = NOW(), resolution_note = $4
		WHERE id = $1 AND status = ANY($5)
		RETURNING *
	`, id, string(to), admin, note, pq.Array(valueobject.Strings(valueobject.ActionableReportStatuses)))
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM user_reports WHERE id = $1)`, id); err != nil {
			return nil, fmt.Errorf("report repository: exists %w", err)
		}
		if !exists {
			return nil, ErrReportNotFound
		}
		return nil, common.ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("report repository: close %w", err)
	}
	return &report, nil
}

// LatestValidatedAgainst последняя подтверждённая жалоба на пользователя.
func (r *ReportRepository) LatestValidatedAgainst(ctx context.Context, userID uuid.UUID) (*models.UserReport, error) {
	var report models.UserReport
	err := r.db.GetContext(ctx, &report, `
		SELECT * FROM user_reports
		WHERE reported_user_id = $1 AND status = $2
		ORDER BY validated_at DESC NULLS LAST, created_at DESC
		LIMIT 1
	`, userID, string(valueobject.ReportStatusValidated))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("report repository: latest validated %w", err)
	}
	return &report, nil
}

// CreateAppeal открывает апелляцию. Если открытая уже есть, возвращает её и created=false.
func (r *ReportRepository) CreateAppeal(ctx context.Context, reportID, userID uuid.UUID, reason *string) (*models.ReportAppeal, bool, error) {
	var appeal models.ReportAppeal
	err := r.db.GetContext(ctx, &appeal, `
		INSERT INTO report_appeals (report_id, user_id, reason, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (report_id, user_id) WHERE status = 'open' DO NOTHING
		RETURNING *
	`, reportID, userID, reason, models.AppealStatusOpen)
	if err == nil {
		return &appeal, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("report repository: create appeal %w", err)
	}

	if err := r.db.GetContext(ctx, &appeal, `
		SELECT * FROM report_appeals WHERE report_id = $1 AND user_id = $2 AND status = $3
	`, reportID, userID, models.AppealStatusOpen); err != nil {
		return nil, false, fmt.Errorf("report repository: existing appeal %w", err)
	}
	return &appeal, false, nil
}

func (r *ReportRepository) ListAppealsByUser(ctx context.Context, userID uuid.UUID) ([]models.ReportAppeal, error) {
	appeals := make([]models.ReportAppeal, 0)
	if err := r.db.SelectContext(ctx, &appeals, `
		SELECT * FROM report_appeals WHERE user_id = $1 ORDER BY created_at DESC
	`, userID); err != nil {
		return nil, fmt.Errorf("report repository: list appeals %w", err)
	}
	return appeals, nil
}

func (r *ReportRepository) ListAppeals(ctx context.Context, status string) ([]models.ReportAppeal, error) {
	query := `SELECT * FROM report_appeals`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	appeals := make([]models.ReportAppeal, 0)
	if err := r.db.SelectContext(ctx, &appeals, query, args...); err != nil {
		return nil, fmt.Errorf("report repository: list appeals %w", err)
	}
	return appeals, nil
}

// ResolveAppeal закрывает открытую апелляцию.
func (r *ReportRepository) ResolveAppeal(ctx context.Context, id, resolver uuid.UUID, note *string) (*models.ReportAppeal, error) {
	var appeal models.ReportAppeal
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &appeal, `
			UPDATE report_appeals
			SET status = $2, resolved_at = NOW(), resolver_user_id = $3, resolution_note = $4
			WHERE id = $1 AND status = $5
			RETURNING *
		`, id, models.AppealStatusResolved, resolver, note, models.AppealStatusOpen)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM report_appeals WHERE id = $1)`, id); err != nil {
				return fmt.Errorf("report repository: appeal exists %w", err)
			}
			if !exists {
				return ErrReportAppealNotFound
			}
			return common.ErrStatusConflict
		}
		if err != nil {
			return fmt.Errorf("report repository: resolve appeal %w", err)
		}
		return insertAudit(ctx, tx, auditEntry(&resolver, AuditReportAppealResolved, "report_appeal", id.String(), nil))
	})
	if err != nil {
		return nil, err
	}
	return &appeal, nil
}
