package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
	ProductStatusSold     = "sold"
	ProductStatusExpired  = "expired"
)

// ProductCategories допустимые категории объявлений.
var ProductCategories = map[string]struct{}{
	"vegetables": {},
	"fruits":     {},
	"grains":     {},
	"dairy":      {},
	"meat":       {},
	"poultry":    {},
	"herbs":      {},
	"other":      {},
}

// ValidProductStatuses статусы, которые может выставить владелец.
var ValidProductStatuses = map[string]struct{}{
	ProductStatusActive:   {},
	ProductStatusInactive: {},
	ProductStatusSold:     {},
	ProductStatusExpired:  {},
}

type Product struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FarmerID          uuid.UUID  `db:"farmer_id" json:"farmer_id"`
	Title             string     `db:"title" json:"title"`
	Description       *string    `db:"description" json:"description,omitempty"`
	Category          string     `db:"category" json:"category"`
	Price             float64    `db:"price" json:"price"`
	Unit              string     `db:"unit" json:"unit"`
	QuantityAvailable int        `db:"quantity_available" json:"quantity_available"`
	MinimumOrder      int        `db:"minimum_order" json:"minimum_order"`
	HarvestDate       *time.Time `db:"harvest_date" json:"harvest_date,omitempty"`
	ExpiryDate        *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Location          Location   `db:"location" json:"location"`
	GeoCell           *string    `db:"geo_cell" json:"-"`
	Images            StringList `db:"images" json:"images"`
	IsOrganic         bool       `db:"is_organic" json:"is_organic"`
	DiscountPercent   int        `db:"discount_percent" json:"discount_percent"`
	Status            string     `db:"status" json:"status"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
