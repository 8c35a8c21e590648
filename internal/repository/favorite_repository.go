package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/agromarket-backend/internal/models"
)

type FavoriteRepository struct {
	db *sqlx.DB
}

func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Toggle добавляет товар в избранное или убирает его. Возвращает новое состояние.
func (r *FavoriteRepository) Toggle(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("favorite repository: remove %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID); err != nil {
		return false, fmt.Errorf("favorite repository: add %w", err)
	}
	return true, nil
}

func (r *FavoriteRepository) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND product_id = $2)
	`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("favorite repository: exists %w", err)
	}
	return exists, nil
}

// ListProducts избранные товары пользователя, последние добавленные первыми.
func (r *FavoriteRepository) ListProducts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Product, error) {
	products := make([]models.Product, 0)
	err := r.db.SelectContext(ctx, &products, `
		SELECT p.* FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("favorite repository: list %w", err)
	}
	return products, nil
}
