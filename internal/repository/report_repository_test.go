package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/repository/common"
)

var reportCols = []string{"id", "reported_user_id", "reporter_id", "reason_code", "status"}

func TestReportRepository_Validate_Strikes(t *testing.T) {
	tests := []struct {
		name          string
		strikes       int
		status        string
		wantSuspended bool
	}{
		{name: "второй страйк", strikes: 2, status: models.UserStatusActive},
		{name: "третий страйк блокирует", strikes: 3, status: models.UserStatusActive, wantSuspended: true},
		{name: "уже заблокирован", strikes: 4, status: models.UserStatusSuspended},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, sm := newMockDB(t)
			repo := NewReportRepository(db)
			reportID, target, admin := uuid.New(), uuid.New(), uuid.New()
			pending, shipped := uuid.New(), uuid.New()

			sm.ExpectBegin()
			sm.ExpectQuery(`UPDATE user_reports`).
				WillReturnRows(sqlmock.NewRows(reportCols).
					AddRow(reportID.String(), target.String(), uuid.NewString(), "fraud", "validated"))
			sm.ExpectQuery(`UPDATE users SET strikes_count`).WithArgs(target).
				WillReturnRows(sqlmock.NewRows([]string{"strikes_count", "status"}).AddRow(tt.strikes, tt.status))
			if tt.wantSuspended {
				sm.ExpectExec(`UPDATE users SET status`).WithArgs(target, models.UserStatusSuspended).
					WillReturnResult(sqlmock.NewResult(0, 1))
				sm.ExpectQuery(`SELECT id, status FROM orders`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).
						AddRow(pending.String(), "pending").
						AddRow(shipped.String(), "shipped"))
				sm.ExpectExec(`UPDATE orders SET status`).WithArgs(sqlmock.AnyArg(), "paused").
					WillReturnResult(sqlmock.NewResult(0, 2))
				sm.ExpectExec(`INSERT INTO order_status_history`).
					WithArgs(pending, "pending", "paused", admin, shipped, "shipped", "paused", admin).
					WillReturnResult(sqlmock.NewResult(0, 2))
			}
			expectAudit(sm, AuditReportValidated)
			sm.ExpectCommit()

			outcome, err := repo.Validate(context.Background(), reportID, admin, nil, 3)
			require.NoError(t, err)
			assert.Equal(t, tt.strikes, outcome.Strikes)
			assert.Equal(t, tt.wantSuspended, outcome.Suspended)
			if tt.wantSuspended {
				assert.Equal(t, []uuid.UUID{pending, shipped}, outcome.PausedOrders)
			} else {
				assert.Empty(t, outcome.PausedOrders)
			}
			assert.NoError(t, sm.ExpectationsWereMet())
		})
	}
}

func TestReportRepository_Validate_AlreadyClosed(t *testing.T) {
	db, sm := newMockDB(t)
	repo := NewReportRepository(db)
	reportID := uuid.New()

	sm.ExpectBegin()
	sm.ExpectQuery(`UPDATE user_reports`).WillReturnRows(sqlmock.NewRows(reportCols))
	sm.ExpectQuery(`SELECT EXISTS`).WithArgs(reportID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	sm.ExpectRollback()

	_, err := repo.Validate(context.Background(), reportID, uuid.New(), nil, 3)
	assert.True(t, errors.Is(err, common.ErrStatusConflict))
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestReportRepository_CreateAppeal(t *testing.T) {
	appealCols := []string{"id", "report_id", "user_id", "status"}

	t.Run("новая апелляция", func(t *testing.T) {
		db, sm := newMockDB(t)
		repo := NewReportRepository(db)
		reportID, userID, appealID := uuid.New(), uuid.New(), uuid.New()

		sm.ExpectQuery(`INSERT INTO report_appeals`).
			WithArgs(reportID, userID, nil, models.AppealStatusOpen).
			WillReturnRows(sqlmock.NewRows(appealCols).AddRow(appealID.String(), reportID.String(), userID.String(), "open"))

		appeal, created, err := repo.CreateAppeal(context.Background(), reportID, userID, nil)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, appealID, appeal.ID)
		assert.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("открытая уже есть", func(t *testing.T) {
		db, sm := newMockDB(t)
		repo := NewReportRepository(db)
		reportID, userID, existingID := uuid.New(), uuid.New(), uuid.New()
		reason := "жалоба ошибочная"

		sm.ExpectQuery(`INSERT INTO report_appeals`).WillReturnRows(sqlmock.NewRows(appealCols))
		sm.ExpectQuery(`SELECT \* FROM report_appeals`).
			WithArgs(reportID, userID, models.AppealStatusOpen).
			WillReturnRows(sqlmock.NewRows(appealCols).AddRow(existingID.String(), reportID.String(), userID.String(), "open"))

		appeal, created, err := repo.CreateAppeal(context.Background(), reportID, userID, &reason)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existingID, appeal.ID)
		assert.NoError(t, sm.ExpectationsWereMet())
	})
}
