package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	OrderID    uuid.UUID  `db:"order_id" json:"order_id"`
	ProductID  *uuid.UUID `db:"product_id" json:"product_id,omitempty"`
	ReviewerID uuid.UUID  `db:"reviewer_id" json:"reviewer_id"`
	ReviewedID uuid.UUID  `db:"reviewed_id" json:"reviewed_id"`
	Rating     int        `db:"rating" json:"rating"`
	Comment    *string    `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

type ReviewComment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ReviewID     uuid.UUID `db:"review_id" json:"review_id"`
	AuthorUserID uuid.UUID `db:"author_user_id" json:"author_user_id"`
	Comment      string    `db:"comment" json:"comment"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
