package valueobject

import (
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusPaused    OrderStatus = "paused"
)

// PausableOrderStatuses статусы, которые каскад приостановки переводит в paused.
var PausableOrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusAccepted, OrderStatusShipped}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusRejected, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusPaused:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusRejected, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsPausable() bool {
	for _, p := range PausableOrderStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// CanTransitionTo переходы, доступные через API. paused выставляет и снимает
// только модерация, поэтому в таблице его нет.
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusAccepted, OrderStatusRejected, OrderStatusCancelled},
		OrderStatusAccepted:  {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:   {OrderStatusDelivered},
		OrderStatusPaused:    {},
		OrderStatusRejected:  {},
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

type VerificationStatus string

const (
	VerificationPending                VerificationStatus = "pending"
	VerificationFlagged                VerificationStatus = "flagged"
	VerificationApproved               VerificationStatus = "approved"
	VerificationRejected               VerificationStatus = "rejected"
	VerificationAppeal                 VerificationStatus = "appeal"
	VerificationAwaitingSecondApproval VerificationStatus = "awaiting_second_approval"
	VerificationReinstated             VerificationStatus = "reinstated"
)

// Множества исходных статусов для действий над заявкой.
var (
	DecisionSources        = []VerificationStatus{VerificationPending, VerificationFlagged, VerificationAppeal, VerificationAwaitingSecondApproval}
	RequestMoreInfoSources = []VerificationStatus{VerificationPending, VerificationFlagged, VerificationAwaitingSecondApproval, VerificationAppeal}
	RespondMoreSources     = []VerificationStatus{VerificationFlagged, VerificationAppeal, VerificationPending, VerificationAwaitingSecondApproval}
	AppealSources          = []VerificationStatus{VerificationRejected, VerificationFlagged}
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationPending, VerificationFlagged, VerificationApproved, VerificationRejected,
		VerificationAppeal, VerificationAwaitingSecondApproval, VerificationReinstated:
		return true
	}
	return false
}

// In сообщает, входит ли статус в набор.
func (s VerificationStatus) In(set []VerificationStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func NewVerificationStatus(status string) (VerificationStatus, error) {
	s := VerificationStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки")
	}
	return s, nil
}

// Strings переводит набор статусов в []string для pq.Array.
func Strings[T ~string](set []T) []string {
	out := make([]string, len(set))
	for i, v := range set {
		out[i] = string(v)
	}
	return out
}

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusValidated ReportStatus = "validated"
	ReportStatusRejected  ReportStatus = "rejected"
	// ReportStatusOpen старое имя pending, встречается в ранних записях.
	ReportStatusOpen ReportStatus = "open"
)

// ActionableReportStatuses статусы, из которых жалобу можно рассмотреть.
var ActionableReportStatuses = []ReportStatus{ReportStatusPending, ReportStatusOpen}

func (s ReportStatus) IsActionable() bool {
	return s == ReportStatusPending || s == ReportStatusOpen
}

func NewReportStatus(status string) (ReportStatus, error) {
	s := ReportStatus(status)
	switch s {
	case ReportStatusPending, ReportStatusValidated, ReportStatusRejected, ReportStatusOpen:
		return s, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус жалобы")
}

// UserFacing сводит статус заявки к статусу пользователя: approved и
// reinstated дают verified, rejected остаётся rejected, остальное pending.
func (s VerificationStatus) UserFacing() string {
	switch s {
	case VerificationApproved, VerificationReinstated:
		return models.UserVerificationVerified
	case VerificationRejected:
		return models.UserVerificationRejected
	default:
		return models.UserVerificationPending
	}
}

// GrantsVerification сообщает, что статус даёт фермеру отметку farm_verified.
func (s VerificationStatus) GrantsVerification() bool {
	return s == VerificationApproved || s == VerificationReinstated
}
