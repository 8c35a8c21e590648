package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/repository/common"
)

// ErrOrderNotFound возвращается, когда заказ не найден.
var ErrOrderNotFound = errors.New("order not found")

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create списывает остаток при условии, что он не изменился с момента чтения
// (expectedQty), создаёт заказ и первую запись журнала. Всё в одной транзакции.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order, expectedQty int) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET quantity_available = quantity_available - $2,
				status = CASE WHEN quantity_available - $2 <= 0 THEN $4 ELSE status END,
				updated_at = NOW()
			WHERE id = $1 AND quantity_available = $3 AND status = $5
		`, order.ProductID, order.Quantity, expectedQty, models.ProductStatusSold, models.ProductStatusActive)
		if err != nil {
			return fmt.Errorf("order repository: decrement stock %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return common.ErrStockConflict
		}

		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO orders (buyer_id, farmer_id, product_id, quantity, unit_price, total_amount, status, delivery_address, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`, order.BuyerID, order.FarmerID, order.ProductID, order.Quantity, order.UnitPrice, order.TotalAmount,
			order.Status, order.DeliveryAddress, order.Notes,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return fmt.Errorf("order repository: insert %w", err)
		}

		buyer := order.BuyerID
		return insertOrderHistory(ctx, tx, order.ID, nil, order.Status, &buyer)
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return common.GetByID[models.Order](ctx, r.db, "orders", id, ErrOrderNotFound)
}

// Transition переводит заказ из from в to и пишет журнал. Если статус уже
// сменил другой запрос, возвращает common.ErrStatusConflict.
func (r *OrderRepository) Transition(ctx context.Context, id uuid.UUID, from, to string, actor uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &order, `
			UPDATE orders SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING *
		`, id, from, to)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id); err != nil {
				return fmt.Errorf("order repository: exists %w", err)
			}
			if !exists {
				return ErrOrderNotFound
			}
			return common.ErrStatusConflict
		}
		if err != nil {
			return fmt.Errorf("order repository: transition %w", err)
		}

		prev := from
		return insertOrderHistory(ctx, tx, id, &prev, to, &actor)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListForUser заказы, где пользователь покупатель или фермер.
func (r *OrderRepository) ListForUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Order, error) {
	query := `SELECT * FROM orders WHERE (buyer_id = $1 OR farmer_id = $1)`
	args := []interface{}{userID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	orders := make([]models.Order, 0)
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("order repository: list %w", err)
	}
	return orders, nil
}
