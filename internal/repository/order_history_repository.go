package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/models"
)

// OrderHistoryRepository журнал переходов заказа, только добавление.
type OrderHistoryRepository struct {
	db *sqlx.DB
}

func NewOrderHistoryRepository(db *sqlx.DB) *OrderHistoryRepository {
	return &OrderHistoryRepository{db: db}
}

func (r *OrderHistoryRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	history := make([]models.OrderStatusHistory, 0)
	err := r.db.SelectContext(ctx, &history, `
		SELECT * FROM order_status_history WHERE order_id = $1 ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order history repository: list %w", err)
	}
	return history, nil
}

func insertOrderHistory(ctx context.Context, ex sqlx.ExecerContext, orderID uuid.UUID, from *string, to string, actor *uuid.UUID) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, changed_by_user_id)
		VALUES ($1, $2, $3, $4)
	`, orderID, from, to, actor)
	if err != nil {
		return fmt.Errorf("order history: insert %w", err)
	}
	return nil
}

// lastNonPausedStatus ищет в журнале последний статус до приостановки.
// Без такой записи заказ возвращается в pending.
func lastNonPausedStatus(ctx context.Context, q sqlx.QueryerContext, orderID uuid.UUID) (string, error) {
	var status string
	err := sqlx.GetContext(ctx, q, &status, `
		SELECT to_status FROM order_status_history
		WHERE order_id = $1 AND to_status <> $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, orderID, string(valueobject.OrderStatusPaused))
	if errors.Is(err, sql.ErrNoRows) {
		return string(valueobject.OrderStatusPending), nil
	}
	if err != nil {
		return "", fmt.Errorf("order history: last non paused %w", err)
	}
	return status, nil
}
