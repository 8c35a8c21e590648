package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
)

type mockStatusReader struct {
	mock.Mock
}

func (m *mockStatusReader) GetStatus(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func TestStatusCache(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	reader := new(mockStatusReader)
	reader.On("GetStatus", ctx, userID).Return(models.UserStatusActive, nil).Once()
	reader.On("GetStatus", ctx, userID).Return(models.UserStatusSuspended, nil).Once()

	cache := NewStatusCache(reader, time.Minute)
	now := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return now }

	status, err := cache.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, status)

	status, _ = cache.Status(ctx, userID)
	assert.Equal(t, models.UserStatusActive, status)
	reader.AssertNumberOfCalls(t, "GetStatus", 1)

	cache.Invalidate(userID)
	status, _ = cache.Status(ctx, userID)
	assert.Equal(t, models.UserStatusSuspended, status)
	reader.AssertNumberOfCalls(t, "GetStatus", 2)
}

func TestStatusCache_Expires(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	reader := new(mockStatusReader)
	reader.On("GetStatus", ctx, userID).Return(models.UserStatusActive, nil)

	cache := NewStatusCache(reader, time.Second)
	now := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return now }

	_, _ = cache.Status(ctx, userID)
	now = now.Add(2 * time.Second)
	_, _ = cache.Status(ctx, userID)
	reader.AssertNumberOfCalls(t, "GetStatus", 2)
}

func TestStatusCache_UnknownUser(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	reader := new(mockStatusReader)
	reader.On("GetStatus", ctx, userID).Return("", repository.ErrUserNotFound)

	_, err := NewStatusCache(reader, 0).Status(ctx, userID)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}
