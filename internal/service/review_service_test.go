package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil {
		review.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetByOrderAndReviewer(ctx context.Context, orderID, reviewerID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, orderID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByReviewedID(ctx context.Context, reviewedID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, reviewedID, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepo) AddComment(ctx context.Context, c *models.ReviewComment) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockReviewRepo) ListComments(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewComment, error) {
	args := m.Called(ctx, reviewID)
	return args.Get(0).([]models.ReviewComment), args.Error(1)
}

type mockOrderRepoForReview struct {
	mock.Mock
}

func (m *mockOrderRepoForReview) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func deliveredOrder(buyer, farmer uuid.UUID) *models.Order {
	return &models.Order{
		ID:        uuid.New(),
		BuyerID:   buyer,
		FarmerID:  farmer,
		ProductID: uuid.New(),
		Status:    "delivered",
	}
}

func TestReviewService_CreateReview_Success(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	buyerID := uuid.New()
	farmerID := uuid.New()
	order := deliveredOrder(buyerID, farmerID)

	orderRepo.On("GetByID", ctx, order.ID).Return(order, nil)
	reviewRepo.On("GetByOrderAndReviewer", ctx, order.ID, buyerID).Return(nil, nil)
	reviewRepo.On("Create", ctx, mock.AnythingOfType("*models.Review")).Return(nil)

	comment := " Свежая картошка, спасибо! "
	review, err := svc.CreateReview(ctx, order.ID, buyerID, 5, &comment)

	assert.NoError(t, err)
	assert.NotNil(t, review)
	assert.Equal(t, farmerID, review.ReviewedID)
	assert.Equal(t, order.ProductID, *review.ProductID)
	assert.Equal(t, "Свежая картошка, спасибо!", *review.Comment)
}

func TestReviewService_CreateReview_InvalidRating(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	_, err := svc.CreateReview(ctx, uuid.New(), uuid.New(), 0, nil)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "от 1 до 5")

	_, err = svc.CreateReview(ctx, uuid.New(), uuid.New(), 6, nil)
	assert.Error(t, err)
}

func TestReviewService_CreateReview_OrderNotDelivered(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	buyerID := uuid.New()
	order := deliveredOrder(buyerID, uuid.New())
	order.Status = "shipped"
	orderRepo.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := svc.CreateReview(ctx, order.ID, buyerID, 5, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "после доставки")
}

func TestReviewService_CreateReview_AlreadyReviewed(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	buyerID := uuid.New()
	order := deliveredOrder(buyerID, uuid.New())

	orderRepo.On("GetByID", ctx, order.ID).Return(order, nil)
	reviewRepo.On("GetByOrderAndReviewer", ctx, order.ID, buyerID).Return(&models.Review{ID: uuid.New()}, nil)

	_, err := svc.CreateReview(ctx, order.ID, buyerID, 5, nil)
	assert.True(t, apperror.IsConflict(err))
	assert.Contains(t, err.Error(), "уже оставили")
}

func TestReviewService_CreateReview_FarmerCannotReview(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	farmerID := uuid.New()
	order := deliveredOrder(uuid.New(), farmerID)
	orderRepo.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := svc.CreateReview(ctx, order.ID, farmerID, 5, nil)
	assert.True(t, apperror.IsForbidden(err))
	reviewRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewService_CreateReview_OrderNotFound(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	orderID := uuid.New()
	orderRepo.On("GetByID", ctx, orderID).Return(nil, repository.ErrOrderNotFound)

	_, err := svc.CreateReview(ctx, orderID, uuid.New(), 4, nil)
	assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
}

func TestReviewService_ListUserReviews(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	userID := uuid.New()
	expected := []models.Review{{ID: uuid.New()}, {ID: uuid.New()}}
	reviewRepo.On("ListByReviewedID", ctx, userID, 20, 0).Return(expected, nil)

	reviews, err := svc.ListUserReviews(ctx, userID, 0, -5)
	assert.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestReviewService_CanLeaveReview(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	buyerID := uuid.New()
	order := deliveredOrder(buyerID, uuid.New())
	orderRepo.On("GetByID", ctx, order.ID).Return(order, nil)
	reviewRepo.On("GetByOrderAndReviewer", ctx, order.ID, buyerID).Return(nil, nil).Once()
	reviewRepo.On("GetByOrderAndReviewer", ctx, order.ID, buyerID).Return(&models.Review{ID: uuid.New()}, nil).Once()

	canReview, err := svc.CanLeaveReview(ctx, order.ID, buyerID)
	assert.NoError(t, err)
	assert.True(t, canReview)

	canReview, err = svc.CanLeaveReview(ctx, order.ID, buyerID)
	assert.NoError(t, err)
	assert.False(t, canReview)

	canReview, err = svc.CanLeaveReview(ctx, order.ID, order.FarmerID)
	assert.NoError(t, err)
	assert.False(t, canReview)
}

func TestReviewService_AddComment(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	review := &models.Review{ID: uuid.New(), ReviewerID: uuid.New(), ReviewedID: uuid.New()}
	reviewRepo.On("GetByID", ctx, review.ID).Return(review, nil)
	reviewRepo.On("AddComment", ctx, mock.AnythingOfType("*models.ReviewComment")).Return(nil)

	c, err := svc.AddComment(ctx, Actor{ID: review.ReviewedID, Role: models.RoleFarmer}, review.ID, "Спасибо за отзыв")
	assert.NoError(t, err)
	assert.Equal(t, review.ReviewedID, c.AuthorUserID)

	_, err = svc.AddComment(ctx, Actor{ID: uuid.New(), Role: models.RoleBuyer}, review.ID, "мимо проходил")
	assert.True(t, apperror.IsForbidden(err))
}

func TestReviewService_DeleteReview_AdminOnly(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	orderRepo := new(mockOrderRepoForReview)
	svc := NewReviewService(reviewRepo, orderRepo)
	ctx := context.Background()

	id := uuid.New()
	reviewRepo.On("Delete", ctx, id).Return(nil)

	assert.True(t, apperror.IsForbidden(svc.DeleteReview(ctx, Actor{ID: uuid.New(), Role: models.RoleBuyer}, id)))
	assert.NoError(t, svc.DeleteReview(ctx, Actor{ID: uuid.New(), Role: models.RoleAdmin}, id))
	reviewRepo.AssertNumberOfCalls(t, "Delete", 1)
}
