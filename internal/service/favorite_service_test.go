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

type mockFavoriteRepo struct {
	mock.Mock
}

func (m *mockFavoriteRepo) Toggle(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFavoriteRepo) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFavoriteRepo) ListProducts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Product, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Product), args.Error(1)
}

func TestFavoriteService_Toggle(t *testing.T) {
	repo := new(mockFavoriteRepo)
	products := new(mockProductRepo)
	svc := NewFavoriteService(repo, products)
	ctx := context.Background()

	userID, productID, missing := uuid.New(), uuid.New(), uuid.New()
	products.On("GetByID", ctx, productID).Return(&models.Product{ID: productID}, nil)
	products.On("GetByID", ctx, missing).Return(nil, repository.ErrProductNotFound)
	repo.On("Toggle", ctx, userID, productID).Return(true, nil)

	state, err := svc.Toggle(ctx, userID, productID)
	assert.NoError(t, err)
	assert.True(t, state)

	_, err = svc.Toggle(ctx, userID, missing)
	assert.ErrorIs(t, err, apperror.ErrProductNotFound)
	repo.AssertNumberOfCalls(t, "Toggle", 1)
}

func TestFavoriteService_List_DefaultLimit(t *testing.T) {
	repo := new(mockFavoriteRepo)
	svc := NewFavoriteService(repo, new(mockProductRepo))
	ctx := context.Background()

	userID := uuid.New()
	repo.On("ListProducts", ctx, userID, 20, 0).Return([]models.Product{{ID: uuid.New()}}, nil)

	list, err := svc.List(ctx, userID, 500, 0)
	assert.NoError(t, err)
	assert.Len(t, list, 1)
}
