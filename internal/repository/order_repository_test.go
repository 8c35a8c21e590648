package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/repository/common"
)

func newTestOrder() *models.Order {
	return &models.Order{
		BuyerID:     uuid.New(),
		FarmerID:    uuid.New(),
		ProductID:   uuid.New(),
		Quantity:    5,
		UnitPrice:   120,
		TotalAmount: 600,
		Status:      "pending",
	}
}

func TestOrderRepository_Create(t *testing.T) {
	db, sm := newMockDB(t)
	repo := NewOrderRepository(db)
	order := newTestOrder()
	orderID := uuid.New()
	now := time.Now()

	sm.ExpectBegin()
	sm.ExpectExec(`UPDATE products`).
		WithArgs(order.ProductID, 5, 10, models.ProductStatusSold, models.ProductStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sm.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(orderID.String(), now, now))
	sm.ExpectExec(`INSERT INTO order_status_history`).
		WithArgs(orderID, nil, "pending", order.BuyerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sm.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), order, 10))
	assert.Equal(t, orderID, order.ID)
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestOrderRepository_Create_StockChanged(t *testing.T) {
	db, sm := newMockDB(t)
	repo := NewOrderRepository(db)
	order := newTestOrder()

	sm.ExpectBegin()
	// Остаток успел измениться: условие quantity_available = $3 не сработало.
	sm.ExpectExec(`UPDATE products`).
		WithArgs(order.ProductID, 5, 10, models.ProductStatusSold, models.ProductStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))
	sm.ExpectRollback()

	err := repo.Create(context.Background(), order, 10)
	assert.True(t, errors.Is(err, common.ErrStockConflict))
	assert.Equal(t, uuid.Nil, order.ID)
	assert.NoError(t, sm.ExpectationsWereMet())
}
