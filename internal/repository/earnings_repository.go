package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/models"
)

// EarningsRepository агрегаты по заказам фермера.
type EarningsRepository struct {
	db *sqlx.DB
}

func NewEarningsRepository(db *sqlx.DB) *EarningsRepository {
	return &EarningsRepository{db: db}
}

// ListingStats считает заказы, выручку и объёмы по каждому объявлению
// фермера. Выручка учитывает только доставленные заказы.
func (r *EarningsRepository) ListingStats(ctx context.Context, farmerID uuid.UUID) ([]models.ListingEarnings, error) {
	stats := make([]models.ListingEarnings, 0)
	err := r.db.SelectContext(ctx, &stats, `
		SELECT p.id, p.title, p.price, p.unit, p.status,
			COUNT(o.id) AS orders,
			COUNT(o.id) FILTER (WHERE o.status = $2) AS delivered,
			COUNT(o.id) FILTER (WHERE o.status = ANY($3)) AS active,
			COALESCE(SUM(o.total_amount) FILTER (WHERE o.status = $2), 0) AS revenue,
			COALESCE(SUM(o.quantity), 0) AS total_quantity,
			COALESCE(SUM(o.quantity) FILTER (WHERE o.status = $2), 0) AS delivered_quantity,
			COALESCE(AVG(o.unit_price), 0) AS avg_unit_price,
			MAX(o.created_at) AS last_order_at
		FROM products p
		LEFT JOIN orders o ON o.product_id = p.id
		WHERE p.farmer_id = $1
		GROUP BY p.id
		ORDER BY p.created_at DESC
	`, farmerID, string(valueobject.OrderStatusDelivered), pq.Array(valueobject.Strings(valueobject.PausableOrderStatuses)))
	if err != nil {
		return nil, fmt.Errorf("earnings repository: listing stats %w", err)
	}
	return stats, nil
}

// DailyRevenue выручка доставленных заказов по дням начиная с since.
// Дни без выручки в выборку не попадают.
func (r *EarningsRepository) DailyRevenue(ctx context.Context, farmerID uuid.UUID, since time.Time) ([]models.DailyRevenue, error) {
	days := make([]models.DailyRevenue, 0)
	err := r.db.SelectContext(ctx, &days, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, SUM(total_amount) AS revenue
		FROM orders
		WHERE farmer_id = $1 AND status = $2 AND created_at >= $3
		GROUP BY day
		ORDER BY day
	`, farmerID, string(valueobject.OrderStatusDelivered), since)
	if err != nil {
		return nil, fmt.Errorf("earnings repository: daily revenue %w", err)
	}
	return days, nil
}
