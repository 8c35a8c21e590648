package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID              uuid.UUID `db:"id" json:"id"`
	BuyerID         uuid.UUID `db:"buyer_id" json:"buyer_id"`
	FarmerID        uuid.UUID `db:"farmer_id" json:"farmer_id"`
	ProductID       uuid.UUID `db:"product_id" json:"product_id"`
	Quantity        int       `db:"quantity" json:"quantity"`
	UnitPrice       float64   `db:"unit_price" json:"unit_price"`
	TotalAmount     float64   `db:"total_amount" json:"total_amount"`
	Status          string    `db:"status" json:"status"`
	DeliveryAddress JSONMap   `db:"delivery_address" json:"delivery_address,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// IsParticipant сообщает, является ли пользователь покупателем или фермером заказа.
func (o *Order) IsParticipant(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.FarmerID == userID
}
