package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/agromarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/repository/common"
)

var (
	ErrSubmissionNotFound = errors.New("verification submission not found")
	ErrAppealNotFound     = errors.New("verification appeal not found")
)

// VerificationTransition описывает одно изменение заявки. Пустой From
// разрешает любой текущий статус. Next, если задан, вычисляет целевой
// статус по текущему; иначе используется To, а пустой To оставляет статус.
// ConsumeTokens гасит токены загрузки AppendImages в той же транзакции.
type VerificationTransition struct {
	SubmissionID   uuid.UUID
	From           []valueobject.VerificationStatus
	To             valueobject.VerificationStatus
	Next           func(current valueobject.VerificationStatus) valueobject.VerificationStatus
	Actor          uuid.UUID
	Note           *string
	SetReviewer    bool
	ReviewComment  *string
	AppendComments models.AdminComments
	AppendImages   models.VerificationImages
	ConsumeTokens  bool
	RetentionUntil *time.Time
	AuditAction    string
	AuditDetails   models.JSONMap
}

// TransitionResult заявка после перехода и исходный статус.
type TransitionResult struct {
	Submission *models.VerificationSubmission
	From       valueobject.VerificationStatus
	Changed    bool
}

// AppealResult итог подачи апелляции на заявку.
type AppealResult struct {
	Appeal     *models.VerificationAppeal
	Submission *models.VerificationSubmission
	Created    bool
}

type VerificationRepository struct {
	db *sqlx.DB
}

func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// CreateSubmission гасит токены загрузки изображений и создаёт заявку в
// pending вместе с журналом, статусом пользователя и записью аудита. При
// ошибке откатывается всё, включая погашенные токены.
func (r *VerificationRepository) CreateSubmission(ctx context.Context, sub *models.VerificationSubmission) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := consumeUploadTokens(ctx, tx, sub.UserID, sub.Images); err != nil {
			return err
		}

		sub.Status = string(valueobject.VerificationPending)
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO verification_submissions (user_id, images, device_info, status, admin_comments)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		`, sub.UserID, sub.Images, sub.DeviceInfo, sub.Status, sub.AdminComments).StructScan(sub); err != nil {
			return fmt.Errorf("verification repository: create submission %w", err)
		}

		actor := sub.UserID
		if err := insertVerificationHistory(ctx, tx, sub.ID, nil, sub.Status, &actor, nil); err != nil {
			return err
		}
		if err := upsertUserVerification(ctx, tx, sub.UserID, models.UserVerificationPending); err != nil {
			return err
		}
		return insertAudit(ctx, tx, auditEntry(&actor, AuditVerificationSubmitted, "verification_submission", sub.ID.String(), models.JSONMap{
			"images": len(sub.Images),
		}))
	})
}

func (r *VerificationRepository) GetSubmission(ctx context.Context, id uuid.UUID) (*models.VerificationSubmission, error) {
	return common.GetByID[models.VerificationSubmission](ctx, r.db, "verification_submissions", id, ErrSubmissionNotFound)
}

// LatestForUser самая свежая заявка пользователя.
func (r *VerificationRepository) LatestForUser(ctx context.Context, userID uuid.UUID) (*models.VerificationSubmission, error) {
	var sub models.VerificationSubmission
	err := r.db.GetContext(ctx, &sub, `
		SELECT * FROM verification_submissions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification repository: latest %w", err)
	}
	return &sub, nil
}

func (r *VerificationRepository) ListSubmissions(ctx context.Context, status string, limit, offset int) ([]models.VerificationSubmission, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM verification_submissions`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("verification repository: count %w", err)
	}

	args = append(args, limit, offset)
	query := `SELECT * FROM verification_submissions` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	subs := make([]models.VerificationSubmission, 0)
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("verification repository: list %w", err)
	}
	return subs, total, nil
}

func (r *VerificationRepository) History(ctx context.Context, submissionID uuid.UUID) ([]models.VerificationStatusHistory, error) {
	history := make([]models.VerificationStatusHistory, 0)
	if err := r.db.SelectContext(ctx, &history, `
		SELECT * FROM verification_status_history WHERE submission_id = $1 ORDER BY created_at ASC
	`, submissionID); err != nil {
		return nil, fmt.Errorf("verification repository: history %w", err)
	}
	return history, nil
}

// Transition применяет переход атомарно: статус заявки, журнал, статус
// пользователя, отметка фермера и аудит.
func (r *VerificationRepository) Transition(ctx context.Context, t VerificationTransition) (*TransitionResult, error) {
	var result *TransitionResult
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		result, err = applyVerificationTransition(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetUserVerification статус из user_verification, unverified при отсутствии строки.
func (r *VerificationRepository) GetUserVerification(ctx context.Context, userID uuid.UUID) (string, error) {
	var status string
	err := r.db.GetContext(ctx, &status, `SELECT status FROM user_verification WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserVerificationUnverified, nil
	}
	if err != nil {
		return "", fmt.Errorf("verification repository: user verification %w", err)
	}
	return status, nil
}

// CreateUploadToken сохраняет ожидаемый ключ загрузки.
func (r *VerificationRepository) CreateUploadToken(ctx context.Context, token *models.UploadToken) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO upload_tokens (user_id, upload_key, content_type, expires_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, token.UserID, token.UploadKey, token.ContentType, token.ExpiresAt).Scan(&token.ID, &token.CreatedAt); err != nil {
			return fmt.Errorf("verification repository: create upload token %w", err)
		}
		actor := token.UserID
		return insertAudit(ctx, tx, auditEntry(&actor, AuditUploadTokenIssued, "upload_token", token.ID.String(), models.JSONMap{
			"uploadKey": token.UploadKey,
		}))
	})
}

// consumeUploadTokens гасит токен каждого изображения. Изображение без
// действующего токена остаётся в заявке, но теряет отметки проверки.
func consumeUploadTokens(ctx context.Context, q sqlx.QueryerContext, userID uuid.UUID, images models.VerificationImages) error {
	for i := range images {
		valid, err := consumeUploadToken(ctx, q, userID, images[i].UploadKey)
		if err != nil {
			return err
		}
		images[i].TokenValid = valid
		if !valid {
			images[i].Verified = false
			images[i].ETag = ""
			images[i].Size = 0
			images[i].ContentType = ""
		}
	}
	return nil
}

// consumeUploadToken удаляет действующий токен этого пользователя для ключа.
// false означает, что токена нет, он чужой, истёк или уже погашен.
func consumeUploadToken(ctx context.Context, q sqlx.QueryerContext, userID uuid.UUID, uploadKey string) (bool, error) {
	var id uuid.UUID
	err := sqlx.GetContext(ctx, q, &id, `
		DELETE FROM upload_tokens
		WHERE id = (
			SELECT id FROM upload_tokens
			WHERE user_id = $1 AND upload_key = $2 AND expires_at > NOW()
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`, userID, uploadKey)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verification repository: consume upload token %w", err)
	}
	return true, nil
}

// OpenAppeal переводит заявку в appeal и создаёт апелляцию. Если открытая
// апелляция этого пользователя уже есть, возвращает её без изменений.
func (r *VerificationRepository) OpenAppeal(ctx context.Context, submissionID, userID uuid.UUID, reason *string, retentionUntil time.Time, priority int) (*AppealResult, error) {
	result := &AppealResult{}
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var existing models.VerificationAppeal
		err := tx.GetContext(ctx, &existing, `
			SELECT * FROM verification_appeals
			WHERE submission_id = $1 AND user_id = $2 AND status = $3
			LIMIT 1
		`, submissionID, userID, models.AppealStatusOpen)
		if err == nil {
			sub, err := common.GetByID[models.VerificationSubmission](ctx, tx, "verification_submissions", submissionID, ErrSubmissionNotFound)
			if err != nil {
				return err
			}
			result.Appeal = &existing
			result.Submission = sub
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("verification repository: find appeal %w", err)
		}

		transition, err := applyVerificationTransition(ctx, tx, VerificationTransition{
			SubmissionID:   submissionID,
			From:           valueobject.AppealSources,
			To:             valueobject.VerificationAppeal,
			Actor:          userID,
			Note:           reason,
			RetentionUntil: &retentionUntil,
			AuditAction:    AuditVerificationAppealed,
		})
		if err != nil {
			return err
		}

		var appeal models.VerificationAppeal
		if err := tx.GetContext(ctx, &appeal, `
			INSERT INTO verification_appeals (submission_id, user_id, reason, status, priority, retention_extended_until)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		`, submissionID, userID, reason, models.AppealStatusOpen, priority, retentionUntil); err != nil {
			return fmt.Errorf("verification repository: insert appeal %w", err)
		}

		result.Appeal = &appeal
		result.Submission = transition.Submission
		result.Created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *VerificationRepository) GetAppeal(ctx context.Context, id uuid.UUID) (*models.VerificationAppeal, error) {
	return common.GetByID[models.VerificationAppeal](ctx, r.db, "verification_appeals", id, ErrAppealNotFound)
}

// ListAppeals апелляции по статусу, высокий приоритет первым.
func (r *VerificationRepository) ListAppeals(ctx context.Context, status string) ([]models.VerificationAppeal, error) {
	query := `SELECT * FROM verification_appeals`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	appeals := make([]models.VerificationAppeal, 0)
	if err := r.db.SelectContext(ctx, &appeals, query, args...); err != nil {
		return nil, fmt.Errorf("verification repository: list appeals %w", err)
	}
	return appeals, nil
}

// ResolveAppeal закрывает апелляцию. При reinstate заявка в appeal
// становится reinstated; если решение по заявке уже принято, апелляция
// просто закрывается.
func (r *VerificationRepository) ResolveAppeal(ctx context.Context, appealID, resolver uuid.UUID, note *string, reinstate bool) (*models.VerificationAppeal, *TransitionResult, error) {
	var (
		appeal     models.VerificationAppeal
		transition *TransitionResult
	)
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &appeal, `
			UPDATE verification_appeals
			SET status = $2, resolved_at = NOW(), resolver_user_id = $3, resolution_note = $4
			WHERE id = $1 AND status = $5
			RETURNING *
		`, appealID, models.AppealStatusResolved, resolver, note, models.AppealStatusOpen)
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := common.GetByID[models.VerificationAppeal](ctx, tx, "verification_appeals", appealID, ErrAppealNotFound); err != nil {
				return err
			}
			return common.ErrStatusConflict
		}
		if err != nil {
			return fmt.Errorf("verification repository: resolve appeal %w", err)
		}

		var current string
		if err := tx.GetContext(ctx, &current, `
			SELECT status FROM verification_submissions WHERE id = $1 FOR UPDATE
		`, appeal.SubmissionID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSubmissionNotFound
			}
			return fmt.Errorf("verification repository: lock appealed submission %w", err)
		}

		if reinstate && current == string(valueobject.VerificationAppeal) {
			transition, err = applyVerificationTransition(ctx, tx, VerificationTransition{
				SubmissionID: appeal.SubmissionID,
				From:         []valueobject.VerificationStatus{valueobject.VerificationAppeal},
				To:           valueobject.VerificationReinstated,
				Actor:        resolver,
				Note:         note,
				SetReviewer:  true,
			})
			if err != nil {
				return err
			}
		}

		return insertAudit(ctx, tx, auditEntry(&resolver, AuditVerificationAppealClosed, "appeal", appealID.String(), models.JSONMap{
			"reinstate":  reinstate,
			"reinstated": transition != nil && transition.Changed,
		}))
	})
	if err != nil {
		return nil, nil, err
	}
	return &appeal, transition, nil
}

func applyVerificationTransition(ctx context.Context, tx *sqlx.Tx, t VerificationTransition) (*TransitionResult, error) {
	var current models.VerificationSubmission
	err := tx.GetContext(ctx, &current, `SELECT * FROM verification_submissions WHERE id = $1 FOR UPDATE`, t.SubmissionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification repository: lock submission %w", err)
	}

	from := valueobject.VerificationStatus(current.Status)
	if len(t.From) > 0 && !from.In(t.From) {
		return nil, common.ErrStatusConflict
	}

	next := from
	switch {
	case t.Next != nil:
		next = t.Next(from)
	case t.To != "":
		next = t.To
	}

	var reviewer *uuid.UUID
	if t.SetReviewer {
		reviewer = &t.Actor
	}
	comments := t.AppendComments
	if comments == nil {
		comments = models.AdminComments{}
	}
	images := t.AppendImages
	if images == nil {
		images = models.VerificationImages{}
	}
	if t.ConsumeTokens {
		if err := consumeUploadTokens(ctx, tx, current.UserID, images); err != nil {
			return nil, err
		}
	}

	var updated models.VerificationSubmission
	if err := tx.GetContext(ctx, &updated, `
		UPDATE verification_submissions
		SET status = $2,
			reviewer_id = COALESCE($3, reviewer_id),
			review_comment = COALESCE($4, review_comment),
			admin_comments = COALESCE(admin_comments, '[]'::jsonb) || $5::jsonb,
			images = COALESCE(images, '[]'::jsonb) || $6::jsonb,
			retention_extended_until = COALESCE($7, retention_extended_until),
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, t.SubmissionID, string(next), reviewer, t.ReviewComment, comments, images, t.RetentionUntil); err != nil {
		return nil, fmt.Errorf("verification repository: update submission %w", err)
	}

	changed := next != from
	if changed {
		prev := string(from)
		if err := insertVerificationHistory(ctx, tx, t.SubmissionID, &prev, string(next), &t.Actor, t.Note); err != nil {
			return nil, err
		}
		// user_verification и farm_verified следуют только за последней заявкой.
		latest, err := isLatestSubmission(ctx, tx, updated.UserID, updated.ID)
		if err != nil {
			return nil, err
		}
		if latest {
			if err := upsertUserVerification(ctx, tx, updated.UserID, next.UserFacing()); err != nil {
				return nil, err
			}
			if next.GrantsVerification() {
				if _, err := tx.ExecContext(ctx, `
					UPDATE users SET farm_verified = TRUE, updated_at = NOW() WHERE id = $1 AND role = $2
				`, updated.UserID, models.RoleFarmer); err != nil {
					return nil, fmt.Errorf("verification repository: mark farm verified %w", err)
				}
			}
		}
		if from == valueobject.VerificationAppeal {
			if err := closeOpenAppeals(ctx, tx, t.SubmissionID, t.Actor, t.Note); err != nil {
				return nil, err
			}
		}
	}

	if t.AuditAction != "" {
		details := models.JSONMap{"from": string(from), "to": string(next)}
		for k, v := range t.AuditDetails {
			details[k] = v
		}
		if err := insertAudit(ctx, tx, auditEntry(&t.Actor, t.AuditAction, "verification_submission", t.SubmissionID.String(), details)); err != nil {
			return nil, err
		}
	}

	return &TransitionResult{Submission: &updated, From: from, Changed: changed}, nil
}

func isLatestSubmission(ctx context.Context, q sqlx.QueryerContext, userID, submissionID uuid.UUID) (bool, error) {
	var latest uuid.UUID
	if err := sqlx.GetContext(ctx, q, &latest, `
		SELECT id FROM verification_submissions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1
	`, userID); err != nil {
		return false, fmt.Errorf("verification repository: latest submission %w", err)
	}
	return latest == submissionID, nil
}

// closeOpenAppeals закрывает открытые апелляции, когда заявка покидает appeal
// решением администратора.
func closeOpenAppeals(ctx context.Context, ex sqlx.ExecerContext, submissionID, resolver uuid.UUID, note *string) error {
	if _, err := ex.ExecContext(ctx, `
		UPDATE verification_appeals
		SET status = $2, resolved_at = NOW(), resolver_user_id = $3, resolution_note = $4
		WHERE submission_id = $1 AND status = $5
	`, submissionID, models.AppealStatusResolved, resolver, note, models.AppealStatusOpen); err != nil {
		return fmt.Errorf("verification repository: close appeals %w", err)
	}
	return nil
}

func insertVerificationHistory(ctx context.Context, ex sqlx.ExecerContext, submissionID uuid.UUID, from *string, to string, actor *uuid.UUID, note *string) error {
	if _, err := ex.ExecContext(ctx, `
		INSERT INTO verification_status_history (submission_id, from_status, to_status, actor_user_id, note)
		VALUES ($1, $2, $3, $4, $5)
	`, submissionID, from, to, actor, note); err != nil {
		return fmt.Errorf("verification history: insert %w", err)
	}
	return nil
}

func upsertUserVerification(ctx context.Context, ex sqlx.ExecerContext, userID uuid.UUID, status string) error {
	if _, err := ex.ExecContext(ctx, `
		INSERT INTO user_verification (user_id, status, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
	`, userID, status); err != nil {
		return fmt.Errorf("user verification: upsert %w", err)
	}
	return nil
}
