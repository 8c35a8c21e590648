package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReasonSpam        = "spam"
	ReasonFraud       = "fraud"
	ReasonAbuse       = "abuse"
	ReasonFakeListing = "fake_listing"
	ReasonNoShow      = "no_show"
	ReasonOther       = "other"
)

// ValidReportReasons коды причин жалоб.
var ValidReportReasons = map[string]struct{}{
	ReasonSpam:        {},
	ReasonFraud:       {},
	ReasonAbuse:       {},
	ReasonFakeListing: {},
	ReasonNoShow:      {},
	ReasonOther:       {},
}

type UserReport struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	ReportedUserID     uuid.UUID  `db:"reported_user_id" json:"reported_user_id"`
	ReporterID         uuid.UUID  `db:"reporter_id" json:"reporter_id"`
	ReasonCode         string     `db:"reason_code" json:"reason_code"`
	Description        *string    `db:"description" json:"description,omitempty"`
	EvidenceMediaLinks StringList `db:"evidence_media_links" json:"evidence_media_links"`
	Status             string     `db:"status" json:"status"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	ValidatedByUserID  *uuid.UUID `db:"validated_by_user_id" json:"validated_by_user_id,omitempty"`
	ValidatedAt        *time.Time `db:"validated_at" json:"validated_at,omitempty"`
	ResolutionNote     *string    `db:"resolution_note" json:"resolution_note,omitempty"`
}

type ReportAppeal struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ReportID       uuid.UUID  `db:"report_id" json:"report_id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt     *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolverUserID *uuid.UUID `db:"resolver_user_id" json:"resolver_user_id,omitempty"`
	ResolutionNote *string    `db:"resolution_note" json:"resolution_note,omitempty"`
}
