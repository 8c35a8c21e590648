package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
)

type mockEarningsRepo struct {
	mock.Mock
}

func (m *mockEarningsRepo) ListingStats(ctx context.Context, farmerID uuid.UUID) ([]models.ListingEarnings, error) {
	args := m.Called(ctx, farmerID)
	if l := args.Get(0); l != nil {
		return l.([]models.ListingEarnings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEarningsRepo) DailyRevenue(ctx context.Context, farmerID uuid.UUID, since time.Time) ([]models.DailyRevenue, error) {
	args := m.Called(ctx, farmerID, since)
	if d := args.Get(0); d != nil {
		return d.([]models.DailyRevenue), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestEarningsService_FarmerSummary(t *testing.T) {
	ctx := context.Background()
	farmer := Actor{ID: uuid.New(), Role: models.RoleFarmer}
	repo := new(mockEarningsRepo)
	svc := NewEarningsService(repo)
	svc.now = func() time.Time { return time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC) }
	since := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)

	repo.On("ListingStats", ctx, farmer.ID).Return([]models.ListingEarnings{
		{ID: uuid.New(), Title: "Клубника", Status: models.ProductStatusActive, Orders: 4, Delivered: 2, Active: 1, Revenue: 1200.5},
		{ID: uuid.New(), Title: "Картофель", Status: models.ProductStatusSold, Orders: 3, Delivered: 3, Revenue: 900.25},
		{ID: uuid.New(), Title: "Мёд", Status: models.ProductStatusActive, Active: 2},
	}, nil)
	repo.On("DailyRevenue", ctx, farmer.ID, since).Return([]models.DailyRevenue{
		{Date: "2025-06-05", Revenue: 300},
		{Date: "2025-06-10", Revenue: 450.75},
	}, nil)

	summary, err := svc.FarmerSummary(ctx, farmer)
	require.NoError(t, err)

	assert.Equal(t, "RUB", summary.Currency)
	assert.InDelta(t, 2100.75, summary.TotalRevenue, 0.001)
	assert.Equal(t, 5, summary.DeliveredOrders)
	assert.Equal(t, 3, summary.ActiveOrders)
	assert.Equal(t, 2, summary.ActiveListings)
	assert.Len(t, summary.Listings, 3)

	require.Len(t, summary.Trend, 7)
	assert.Equal(t, "2025-06-04", summary.Trend[0].Date)
	assert.Zero(t, summary.Trend[0].Revenue)
	assert.Equal(t, 300.0, summary.Trend[1].Revenue)
	assert.Equal(t, "2025-06-10", summary.Trend[6].Date)
	assert.Equal(t, 450.75, summary.Trend[6].Revenue)
}

func TestEarningsService_FarmerSummary_Rejects(t *testing.T) {
	ctx := context.Background()

	t.Run("не фермер", func(t *testing.T) {
		repo := new(mockEarningsRepo)
		_, err := NewEarningsService(repo).FarmerSummary(ctx, Actor{ID: uuid.New(), Role: models.RoleBuyer})
		assert.True(t, apperror.IsForbidden(err))
		repo.AssertNotCalled(t, "ListingStats", mock.Anything, mock.Anything)
	})

	t.Run("ошибка базы", func(t *testing.T) {
		repo := new(mockEarningsRepo)
		repo.On("ListingStats", ctx, mock.Anything).Return(nil, errors.New("connection reset"))
		_, err := NewEarningsService(repo).FarmerSummary(ctx, Actor{ID: uuid.New(), Role: models.RoleFarmer})
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperror.ErrCodeInternal, appErr.Code)
	})
}
