package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingEarnings показатели одного объявления фермера.
type ListingEarnings struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Title             string     `db:"title" json:"title"`
	Price             float64    `db:"price" json:"price"`
	Unit              string     `db:"unit" json:"unit"`
	Status            string     `db:"status" json:"status"`
	Orders            int        `db:"orders" json:"orders"`
	Delivered         int        `db:"delivered" json:"delivered"`
	Active            int        `db:"active" json:"active"`
	Revenue           float64    `db:"revenue" json:"revenue"`
	TotalQuantity     int        `db:"total_quantity" json:"total_quantity"`
	DeliveredQuantity int        `db:"delivered_quantity" json:"delivered_quantity"`
	AvgUnitPrice      float64    `db:"avg_unit_price" json:"avg_unit_price"`
	LastOrderAt       *time.Time `db:"last_order_at" json:"last_order_at"`
}

// DailyRevenue выручка по доставленным заказам за день (UTC).
type DailyRevenue struct {
	Date    string  `db:"day" json:"date"`
	Revenue float64 `db:"revenue" json:"revenue"`
}

// EarningsSummary сводка фермера по всем объявлениям.
type EarningsSummary struct {
	Currency        string            `json:"currency"`
	TotalRevenue    float64           `json:"total_revenue"`
	ActiveOrders    int               `json:"active_orders"`
	DeliveredOrders int               `json:"delivered_orders"`
	ActiveListings  int               `json:"active_listings"`
	Listings        []ListingEarnings `json:"listings"`
	Trend           []DailyRevenue    `json:"trend"`
}
