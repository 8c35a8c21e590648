package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/repository/common"
)

var (
	ErrProductNotFound = errors.New("product not found")
	// ErrProductHasOrders объявление нельзя удалить, пока на него есть заказы.
	ErrProductHasOrders = errors.New("product has orders")
)

type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (farmer_id, title, description, category, price, unit, quantity_available,
			minimum_order, harvest_date, expiry_date, location, geo_cell, images, is_organic, discount_percent, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		p.FarmerID, p.Title, p.Description, p.Category, p.Price, p.Unit, p.QuantityAvailable,
		p.MinimumOrder, p.HarvestDate, p.ExpiryDate, p.Location, p.GeoCell, p.Images, p.IsOrganic,
		p.DiscountPercent, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("product repository: create %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return common.GetByID[models.Product](ctx, r.db, "products", id, ErrProductNotFound)
}

// Update сохраняет изменяемые владельцем поля.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET description = $2, price = $3, quantity_available = $4, discount_percent = $5,
			status = $6, location = $7, geo_cell = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		p.ID, p.Description, p.Price, p.QuantityAvailable, p.DiscountPercent, p.Status, p.Location, p.GeoCell,
	).Scan(&p.UpdatedAt); err != nil {
		return fmt.Errorf("product repository: update %w", err)
	}
	return nil
}

// TransitionStatus меняет статус, только если текущий равен from.
func (r *ProductRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("product repository: transition %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrStatusConflict
	}
	return nil
}

// Delete удаляет объявление без истории заказов вместе с избранным.
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var hasOrders bool
		if err := tx.GetContext(ctx, &hasOrders, `SELECT EXISTS(SELECT 1 FROM orders WHERE product_id = $1)`, id); err != nil {
			return fmt.Errorf("product repository: check orders %w", err)
		}
		if hasOrders {
			return ErrProductHasOrders
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("product repository: delete favorites %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("product repository: delete %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrProductNotFound
		}
		return nil
	})
}

func (r *ProductRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, includeInactive bool) ([]models.Product, error) {
	query := `SELECT * FROM products WHERE farmer_id = $1`
	if !includeInactive {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY created_at DESC`

	products := make([]models.Product, 0)
	if err := r.db.SelectContext(ctx, &products, query, farmerID); err != nil {
		return nil, fmt.Errorf("product repository: list by farmer %w", err)
	}
	return products, nil
}

// ListNearbyCandidates активные объявления с остатком в заданных ячейках.
func (r *ProductRepository) ListNearbyCandidates(ctx context.Context, cells []string, category string) ([]models.Product, error) {
	query := `SELECT * FROM products WHERE status = 'active' AND quantity_available > 0`
	args := []interface{}{}
	if cells != nil {
		args = append(args, pq.Array(cells))
		query += fmt.Sprintf(` AND geo_cell = ANY($%d)`, len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("product repository: nearby candidates %w", err)
	}
	return products, nil
}

func (r *ProductRepository) ListLocated(ctx context.Context) ([]LocatedRow, error) {
	return listLocated(ctx, r.db, "products")
}

func (r *ProductRepository) UpdateGeoCells(ctx context.Context, cells map[uuid.UUID]string) error {
	return updateGeoCells(ctx, r.db, "products", cells)
}
