package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
)

const maxReviewComment = 2000

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetByOrderAndReviewer(ctx context.Context, orderID, reviewerID uuid.UUID) (*models.Review, error)
	ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddComment(ctx context.Context, c *models.ReviewComment) error
	ListComments(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewComment, error)
}

type OrderRepoForReview interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type ReviewService struct {
	repo   ReviewRepository
	orders OrderRepoForReview
}

func NewReviewService(repo ReviewRepository, orders OrderRepoForReview) *ReviewService {
	return &ReviewService{repo: repo, orders: orders}
}

// CreateReview отзыв покупателя о фермере по доставленному заказу. Один на заказ.
func (s *ReviewService) CreateReview(ctx context.Context, orderID, reviewerID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.Validation("рейтинг должен быть от 1 до 5")
	}
	comment = trimmedOrNil(comment)
	if comment != nil && len([]rune(*comment)) > maxReviewComment {
		return nil, apperror.Validation("комментарий слишком длинный")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if order.BuyerID != reviewerID {
		return nil, apperror.Forbidden("отзыв оставляет только покупатель заказа")
	}
	if order.Status != string(valueobject.OrderStatusDelivered) {
		return nil, apperror.Validation("отзыв можно оставить только после доставки")
	}

	existing, err := s.repo.GetByOrderAndReviewer(ctx, orderID, reviewerID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if existing != nil {
		return nil, apperror.Conflict("вы уже оставили отзыв на этот заказ")
	}

	productID := order.ProductID
	review := &models.Review{
		OrderID:    orderID,
		ProductID:  &productID,
		ReviewerID: reviewerID,
		ReviewedID: order.FarmerID,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, mapRepoError(err)
	}
	return review, nil
}

func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return review, nil
}

// ListUserReviews отзывы о пользователе.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListByReviewedID(ctx, userID, limit, offset)
	return list, mapRepoError(err)
}

// CanLeaveReview проверяет, может ли пользователь оставить отзыв.
func (s *ReviewService) CanLeaveReview(ctx context.Context, orderID, userID uuid.UUID) (bool, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return false, nil
	}
	if order.Status != string(valueobject.OrderStatusDelivered) || order.BuyerID != userID {
		return false, nil
	}
	existing, err := s.repo.GetByOrderAndReviewer(ctx, orderID, userID)
	if err != nil {
		return false, mapRepoError(err)
	}
	return existing == nil, nil
}

// AddComment ответ на отзыв: автор отзыва, получатель или администратор.
func (s *ReviewService) AddComment(ctx context.Context, actor Actor, reviewID uuid.UUID, text string) (*models.ReviewComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.Validation("комментарий пуст")
	}
	if len([]rune(text)) > maxReviewComment {
		return nil, apperror.Validation("комментарий слишком длинный")
	}

	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !actor.IsAdmin() && actor.ID != review.ReviewerID && actor.ID != review.ReviewedID {
		return nil, apperror.ErrForbidden
	}

	c := &models.ReviewComment{ReviewID: reviewID, AuthorUserID: actor.ID, Comment: text}
	if err := s.repo.AddComment(ctx, c); err != nil {
		return nil, mapRepoError(err)
	}
	return c, nil
}

func (s *ReviewService) ListComments(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewComment, error) {
	if _, err := s.repo.GetByID(ctx, reviewID); err != nil {
		return nil, mapRepoError(err)
	}
	list, err := s.repo.ListComments(ctx, reviewID)
	return list, mapRepoError(err)
}

// DeleteReview удаление модератором, рейтинг пересчитывается в репозитории.
func (s *ReviewService) DeleteReview(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperror.ErrForbidden
	}
	return mapRepoError(s.repo.Delete(ctx, id))
}
