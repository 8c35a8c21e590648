package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatusHistory одна запись журнала переходов заказа (только добавление).
type OrderStatusHistory struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	OrderID         uuid.UUID  `db:"order_id" json:"order_id"`
	FromStatus      *string    `db:"from_status" json:"from_status"`
	ToStatus        string     `db:"to_status" json:"to_status"`
	ChangedByUserID *uuid.UUID `db:"changed_by_user_id" json:"changed_by_user_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
