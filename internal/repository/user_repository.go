package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/repository/common"
)

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, username, email, role, full_name, phone, location, geo_cell, farm_verified,
	trusted, strikes_count, rating_avg, rating_count, status, created_at, updated_at`

// UserRepository отвечает за таблицу users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// GetByUsername возвращает пользователя по username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "username", username, ErrUserNotFound)
}

// GetStatus возвращает только статус аккаунта, используется в проверке блокировки.
func (r *UserRepository) GetStatus(ctx context.Context, id uuid.UUID) (string, error) {
	var status string
	if err := r.db.GetContext(ctx, &status, `SELECT status FROM users WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("user repository: get status %w", err)
	}
	return status, nil
}

// UpdateLocation записывает координаты и ячейку сетки одним UPDATE.
func (r *UserRepository) UpdateLocation(ctx context.Context, id uuid.UUID, loc models.Location, geoCell string) (*models.User, error) {
	var user models.User
	query := `
		UPDATE users
		SET location = $2, geo_cell = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	if err := r.db.GetContext(ctx, &user, query, id, loc, geoCell); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: update location %w", err)
	}
	return &user, nil
}

// UpdateProfile записывает редактируемые пользователем поля. nil очищает поле.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, phone *string) (*models.User, error) {
	var user models.User
	query := `
		UPDATE users
		SET full_name = $2, phone = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	if err := r.db.GetContext(ctx, &user, query, id, fullName, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: update profile %w", err)
	}
	return &user, nil
}

// SetTrusted ставит или снимает отметку доверенного продавца и пишет аудит.
func (r *UserRepository) SetTrusted(ctx context.Context, id, actor uuid.UUID, trusted bool) (*models.User, error) {
	var user models.User
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &user, `
			UPDATE users SET trusted = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns, id, trusted)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("user repository: set trusted %w", err)
		}
		return insertAudit(ctx, tx, auditEntry(&actor, AuditUserTrustChanged, "user", id.String(), models.JSONMap{
			"trusted": trusted,
		}))
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListNearbyCandidates возвращает активных пользователей роли с координатами.
// Пустой cells означает полный просмотр роли.
func (r *UserRepository) ListNearbyCandidates(ctx context.Context, role string, cells []string) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND status = 'active' AND location IS NOT NULL`
	args := []interface{}{role}
	if cells != nil {
		query += ` AND geo_cell = ANY($2)`
		args = append(args, pq.Array(cells))
	}

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("user repository: nearby candidates %w", err)
	}
	return users, nil
}

// Upsert создаёт или обновляет пользователя по данным провайдера идентификации.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, role, full_name, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			full_name = EXCLUDED.full_name,
			updated_at = NOW()
		RETURNING ` + userColumns

	if err := r.db.QueryRowxContext(ctx, query,
		user.ID, user.Username, user.Email, user.Role, user.FullName,
	).StructScan(user); err != nil {
		return fmt.Errorf("user repository: upsert %w", err)
	}
	return nil
}

// SetStatus меняет статус аккаунта без каскада (бан, удаление у провайдера).
func (r *UserRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("user repository: set status %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListLocated отдаёт всех пользователей с координатами для пересчёта ячеек.
func (r *UserRepository) ListLocated(ctx context.Context) ([]LocatedRow, error) {
	return listLocated(ctx, r.db, "users")
}

// UpdateGeoCells записывает пересчитанные ячейки одной транзакцией.
func (r *UserRepository) UpdateGeoCells(ctx context.Context, cells map[uuid.UUID]string) error {
	return updateGeoCells(ctx, r.db, "users", cells)
}

// LocatedRow строка с координатами для backfill.
type LocatedRow struct {
	ID       uuid.UUID       `db:"id"`
	Location models.Location `db:"location"`
	GeoCell  *string         `db:"geo_cell"`
}

func listLocated(ctx context.Context, db *sqlx.DB, table string) ([]LocatedRow, error) {
	var rows []LocatedRow
	query := fmt.Sprintf(`SELECT id, location, geo_cell FROM %s WHERE location IS NOT NULL`, table)
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%s: list located %w", table, err)
	}
	return rows, nil
}

func updateGeoCells(ctx context.Context, db *sqlx.DB, table string, cells map[uuid.UUID]string) error {
	if len(cells) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET geo_cell = $2 WHERE id = $1`, table)
	return common.WithTransaction(ctx, db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return fmt.Errorf("%s: prepare geo cell update %w", table, err)
		}
		defer stmt.Close()

		for id, cell := range cells {
			if _, err := stmt.ExecContext(ctx, id, cell); err != nil {
				return fmt.Errorf("%s: update geo cell %w", table, err)
			}
		}
		return nil
	})
}
