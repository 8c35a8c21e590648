package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений, которые создаёт модерация.
const (
	NotificationVerificationStatus = "verification_status"
	NotificationModeration         = "moderation"
	NotificationReportReceived     = "report_received"
	NotificationAccountSuspended   = "account_suspended"
	NotificationAccountReactivated = "account_reactivated"
	NotificationOrderStatus        = "order_status"
)

type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Body      *string    `db:"body" json:"body,omitempty"`
	Data      JSONMap    `db:"data" json:"data"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

type AuditLog struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ActorUserID *uuid.UUID `db:"actor_user_id" json:"actor_user_id,omitempty"`
	Action      string     `db:"action" json:"action"`
	SubjectType string     `db:"subject_type" json:"subject_type"`
	SubjectID   *string    `db:"subject_id" json:"subject_id,omitempty"`
	Details     JSONMap    `db:"details" json:"details"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
