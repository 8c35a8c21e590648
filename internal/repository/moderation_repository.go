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

const orderHistoryInsert = `INSERT INTO order_status_history (order_id, from_status, to_status, changed_by_user_id)`

// SuspendResult итог блокировки аккаунта.
type SuspendResult struct {
	AlreadySuspended bool
	PausedOrders     []uuid.UUID
}

// ResumedOrder заказ, восстановленный после разблокировки.
type ResumedOrder struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// UnsuspendResult итог разблокировки.
type UnsuspendResult struct {
	WasSuspended bool
	Resumed      []ResumedOrder
}

// ModerationRepository меняет статус аккаунта вместе с каскадом по заказам.
type ModerationRepository struct {
	db *sqlx.DB
}

func NewModerationRepository(db *sqlx.DB) *ModerationRepository {
	return &ModerationRepository{db: db}
}

// Suspend блокирует пользователя и приостанавливает его активные заказы.
// Повторный вызов для уже заблокированного ничего не меняет.
func (r *ModerationRepository) Suspend(ctx context.Context, userID, actor uuid.UUID) (*SuspendResult, error) {
	result := &SuspendResult{}
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		status, err := lockUserStatus(ctx, tx, userID)
		if err != nil {
			return err
		}
		if status == models.UserStatusSuspended {
			result.AlreadySuspended = true
			return nil
		}

		if err := setUserStatus(ctx, tx, userID, models.UserStatusSuspended); err != nil {
			return err
		}
		paused, err := pauseUserOrders(ctx, tx, userID, &actor)
		if err != nil {
			return err
		}
		result.PausedOrders = paused

		return insertAudit(ctx, tx, auditEntry(&actor, AuditUserSuspended, "user", userID.String(), models.JSONMap{
			"pausedOrders": len(paused),
		}))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Unsuspend снимает блокировку и возвращает приостановленные заказы
// в последний статус из журнала.
func (r *ModerationRepository) Unsuspend(ctx context.Context, userID, actor uuid.UUID) (*UnsuspendResult, error) {
	result := &UnsuspendResult{}
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		status, err := lockUserStatus(ctx, tx, userID)
		if err != nil {
			return err
		}
		if status == models.UserStatusSuspended {
			result.WasSuspended = true
			if err := setUserStatus(ctx, tx, userID, models.UserStatusActive); err != nil {
				return err
			}
		}

		resumed, err := resumeUserOrders(ctx, tx, userID, &actor)
		if err != nil {
			return err
		}
		result.Resumed = resumed

		return insertAudit(ctx, tx, auditEntry(&actor, AuditUserUnsuspended, "user", userID.String(), models.JSONMap{
			"resumedOrders": len(resumed),
		}))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Ban деактивирует аккаунт. Заказы не трогаются.
func (r *ModerationRepository) Ban(ctx context.Context, userID, actor uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := lockUserStatus(ctx, tx, userID); err != nil {
			return err
		}
		if err := setUserStatus(ctx, tx, userID, models.UserStatusInactive); err != nil {
			return err
		}
		return insertAudit(ctx, tx, auditEntry(&actor, AuditUserBanned, "user", userID.String(), nil))
	})
}

func lockUserStatus(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (string, error) {
	var status string
	err := tx.GetContext(ctx, &status, `SELECT status FROM users WHERE id = $1 FOR UPDATE`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("moderation: lock user %w", err)
	}
	return status, nil
}

func setUserStatus(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, status string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, userID, status); err != nil {
		return fmt.Errorf("moderation: set user status %w", err)
	}
	return nil
}

// pauseUserOrders переводит заказы пользователя (покупатель или фермер) из
// pending/accepted/shipped в paused. В журнал пишется настоящий исходный статус.
func pauseUserOrders(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, actor *uuid.UUID) ([]uuid.UUID, error) {
	var rows []struct {
		ID     uuid.UUID `db:"id"`
		Status string    `db:"status"`
	}
	if err := tx.SelectContext(ctx, &rows, `
		SELECT id, status FROM orders
		WHERE (buyer_id = $1 OR farmer_id = $1) AND status = ANY($2)
		FOR UPDATE
	`, userID, pq.Array(valueobject.Strings(valueobject.PausableOrderStatuses))); err != nil {
		return nil, fmt.Errorf("moderation: select orders to pause %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(rows))
	idStrings := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		idStrings[i] = row.ID.String()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW() WHERE id = ANY($1::uuid[])
	`, pq.Array(idStrings), string(valueobject.OrderStatusPaused)); err != nil {
		return nil, fmt.Errorf("moderation: pause orders %w", err)
	}

	history := common.NewBatchInserter(tx, orderHistoryInsert, 4, 100)
	for _, row := range rows {
		from := row.Status
		if err := history.Add(ctx, row.ID, &from, string(valueobject.OrderStatusPaused), actor); err != nil {
			return nil, err
		}
	}
	if err := history.Flush(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// resumeUserOrders восстанавливает каждый приостановленный заказ по журналу.
func resumeUserOrders(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, actor *uuid.UUID) ([]ResumedOrder, error) {
	var ids []uuid.UUID
	if err := tx.SelectContext(ctx, &ids, `
		SELECT id FROM orders
		WHERE (buyer_id = $1 OR farmer_id = $1) AND status = $2
		FOR UPDATE
	`, userID, string(valueobject.OrderStatusPaused)); err != nil {
		return nil, fmt.Errorf("moderation: select paused orders %w", err)
	}

	resumed := make([]ResumedOrder, 0, len(ids))
	history := common.NewBatchInserter(tx, orderHistoryInsert, 4, 100)
	paused := string(valueobject.OrderStatusPaused)
	for _, id := range ids {
		restored, err := lastNonPausedStatus(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, restored); err != nil {
			return nil, fmt.Errorf("moderation: resume order %w", err)
		}
		if err := history.Add(ctx, id, &paused, restored, actor); err != nil {
			return nil, err
		}
		resumed = append(resumed, ResumedOrder{ID: id, Status: restored})
	}
	if err := history.Flush(ctx); err != nil {
		return nil, err
	}
	return resumed, nil
}
