package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	UserVerificationUnverified = "unverified"
	UserVerificationPending    = "pending"
	UserVerificationVerified   = "verified"
	UserVerificationRejected   = "rejected"

	AppealStatusOpen     = "open"
	AppealStatusResolved = "resolved"

	CommentAuthorAdmin = "admin"
	CommentAuthorUser  = "user"
)

// VerificationImage снимок-доказательство вместе с результатами проверок.
type VerificationImage struct {
	UploadKey   string                 `json:"uploadKey"`
	URL         string                 `json:"url,omitempty"`
	TokenValid  bool                   `json:"tokenValid"`
	Verified    bool                   `json:"verified"`
	ETag        string                 `json:"etag,omitempty"`
	Size        int64                  `json:"size,omitempty"`
	ContentType string                 `json:"contentType,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	AddedAt     time.Time              `json:"addedAt"`
}

type VerificationImages []VerificationImage

func (v VerificationImages) Value() (driver.Value, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

func (v *VerificationImages) Scan(src interface{}) error {
	return scanJSON(src, v)
}

// AdminComment запись в ленте комментариев заявки. Author различает
// администратора и пользователя, VisibleToUser управляет выдачей владельцу.
type AdminComment struct {
	Author        string    `json:"author"`
	AuthorUserID  uuid.UUID `json:"authorUserId"`
	Text          string    `json:"text"`
	VisibleToUser bool      `json:"visibleToUser"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AdminComments []AdminComment

func (c AdminComments) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *AdminComments) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// VisibleToUser оставляет только комментарии, которые можно показать владельцу.
func (c AdminComments) VisibleToUser() AdminComments {
	out := make(AdminComments, 0, len(c))
	for _, comment := range c {
		if comment.VisibleToUser {
			out = append(out, comment)
		}
	}
	return out
}

type VerificationSubmission struct {
	ID                     uuid.UUID          `db:"id" json:"id"`
	UserID                 uuid.UUID          `db:"user_id" json:"user_id"`
	Images                 VerificationImages `db:"images" json:"images"`
	DeviceInfo             JSONMap            `db:"device_info" json:"device_info,omitempty"`
	Status                 string             `db:"status" json:"status"`
	ReviewerID             *uuid.UUID         `db:"reviewer_id" json:"reviewer_id,omitempty"`
	ReviewComment          *string            `db:"review_comment" json:"review_comment,omitempty"`
	RetentionExtendedUntil *time.Time         `db:"retention_extended_until" json:"retention_extended_until,omitempty"`
	AdminComments          AdminComments      `db:"admin_comments" json:"admin_comments"`
	CreatedAt              time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time          `db:"updated_at" json:"updated_at"`
}

type VerificationStatusHistory struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	SubmissionID uuid.UUID  `db:"submission_id" json:"submission_id"`
	FromStatus   *string    `db:"from_status" json:"from_status"`
	ToStatus     string     `db:"to_status" json:"to_status"`
	ActorUserID  *uuid.UUID `db:"actor_user_id" json:"actor_user_id,omitempty"`
	Note         *string    `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

type UserVerification struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Status    string    `db:"status" json:"status"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type UploadToken struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	UploadKey   string    `db:"upload_key" json:"upload_key"`
	ContentType *string   `db:"content_type" json:"content_type,omitempty"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type VerificationAppeal struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	SubmissionID           uuid.UUID  `db:"submission_id" json:"submission_id"`
	UserID                 uuid.UUID  `db:"user_id" json:"user_id"`
	Reason                 *string    `db:"reason" json:"reason,omitempty"`
	Status                 string     `db:"status" json:"status"`
	Priority               int        `db:"priority" json:"priority"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt             *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolverUserID         *uuid.UUID `db:"resolver_user_id" json:"resolver_user_id,omitempty"`
	ResolutionNote         *string    `db:"resolution_note" json:"resolution_note,omitempty"`
	RetentionExtendedUntil *time.Time `db:"retention_extended_until" json:"retention_extended_until,omitempty"`
}
