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

var ErrReviewNotFound = errors.New("review not found")

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create сохраняет отзыв и пересчитывает рейтинг получателя в той же транзакции.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO reviews (order_id, product_id, reviewer_id, reviewed_id, rating, comment)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`, review.OrderID, review.ProductID, review.ReviewerID, review.ReviewedID, review.Rating, review.Comment,
		).Scan(&review.ID, &review.CreatedAt); err != nil {
			return fmt.Errorf("review repository: create %w", err)
		}
		return recalcRating(ctx, tx, review.ReviewedID)
	})
}

// GetByID возвращает отзыв по ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return common.GetByID[models.Review](ctx, r.db, "reviews", id, ErrReviewNotFound)
}

// GetByOrderAndReviewer отзыв пользователя на заказ или nil, если его нет.
func (r *ReviewRepository) GetByOrderAndReviewer(ctx context.Context, orderID, reviewerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review, `SELECT * FROM reviews WHERE order_id = $1 AND reviewer_id = $2`, orderID, reviewerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("review repository: get by order %w", err)
	}
	return &review, nil
}

// ListByReviewedID возвращает отзывы о пользователе.
func (r *ReviewRepository) ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error) {
	reviews := make([]models.Review, 0)
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE reviewed_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, reviewedID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("review repository: list %w", err)
	}
	return reviews, nil
}

// Delete удаляет отзыв и пересчитывает рейтинг.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var reviewedID uuid.UUID
		err := tx.GetContext(ctx, &reviewedID, `DELETE FROM reviews WHERE id = $1 RETURNING reviewed_id`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReviewNotFound
		}
		if err != nil {
			return fmt.Errorf("review repository: delete %w", err)
		}
		return recalcRating(ctx, tx, reviewedID)
	})
}

func (r *ReviewRepository) AddComment(ctx context.Context, c *models.ReviewComment) error {
	if err := r.db.QueryRowxContext(ctx, `
		INSERT INTO review_comments (review_id, author_user_id, comment)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.ReviewID, c.AuthorUserID, c.Comment).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("review repository: add comment %w", err)
	}
	return nil
}

func (r *ReviewRepository) ListComments(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewComment, error) {
	comments := make([]models.ReviewComment, 0)
	if err := r.db.SelectContext(ctx, &comments, `
		SELECT * FROM review_comments WHERE review_id = $1 ORDER BY created_at ASC
	`, reviewID); err != nil {
		return nil, fmt.Errorf("review repository: list comments %w", err)
	}
	return comments, nil
}

func recalcRating(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE users u
		SET rating_avg = COALESCE(s.avg, 0), rating_count = s.cnt, updated_at = NOW()
		FROM (SELECT ROUND(AVG(rating)::numeric, 2) AS avg, COUNT(*) AS cnt FROM reviews WHERE reviewed_id = $1) s
		WHERE u.id = $1
	`, userID); err != nil {
		return fmt.Errorf("review repository: recalc rating %w", err)
	}
	return nil
}
