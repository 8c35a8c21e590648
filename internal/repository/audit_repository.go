package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/agromarket-backend/internal/models"
)

// Действия, которые попадают в audit_logs.
const (
	AuditUploadTokenIssued        = "upload_token_issued"
	AuditVerificationSubmitted    = "verification_submitted"
	AuditVerificationApproved     = "verification_approved"
	AuditVerificationRejected     = "verification_rejected"
	AuditVerificationMoreInfo     = "verification_more_info_requested"
	AuditVerificationResponded    = "verification_more_info_responded"
	AuditVerificationComment      = "verification_comment_added"
	AuditVerificationAppealed     = "verification_appealed"
	AuditVerificationAppealClosed = "verification_appeal_resolved"
	AuditReportValidated          = "report_validated"
	AuditReportRejected           = "report_rejected"
	AuditReportAppealResolved     = "report_appeal_resolved"
	AuditUserSuspended            = "user_suspended"
	AuditUserUnsuspended          = "user_unsuspended"
	AuditUserBanned               = "user_banned"
	AuditUserTrustChanged         = "user_trust_changed"
)

type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return insertAudit(ctx, r.db, log)
}

// List последние записи журнала, новые первыми.
func (r *AuditRepository) List(ctx context.Context, limit int) ([]models.AuditLog, error) {
	logs := make([]models.AuditLog, 0)
	if err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM audit_logs ORDER BY created_at DESC LIMIT $1
	`, limit); err != nil {
		return nil, fmt.Errorf("audit repository: list %w", err)
	}
	return logs, nil
}

func insertAudit(ctx context.Context, ex sqlx.ExecerContext, log *models.AuditLog) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO audit_logs (actor_user_id, action, subject_type, subject_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`, log.ActorUserID, log.Action, log.SubjectType, log.SubjectID, log.Details)
	if err != nil {
		return fmt.Errorf("audit: insert %s %w", log.Action, err)
	}
	return nil
}

func auditEntry(actor *uuid.UUID, action, subjectType, subjectID string, details models.JSONMap) *models.AuditLog {
	return &models.AuditLog{
		ActorUserID: actor,
		Action:      action,
		SubjectType: subjectType,
		SubjectID:   &subjectID,
		Details:     details,
	}
}
