package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	RoleBuyer  = "buyer"
	RoleFarmer = "farmer"
	RoleAdmin  = "admin"

	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

// ValidRoles список ролей, которые может прислать провайдер идентификации.
var ValidRoles = map[string]struct{}{
	RoleBuyer:  {},
	RoleFarmer: {},
	RoleAdmin:  {},
}

// Location хранится в jsonb-колонке location.
type Location struct {
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Address   string     `json:"address,omitempty"`
	City      string     `json:"city,omitempty"`
	Country   string     `json:"country,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (l Location) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *Location) Scan(src interface{}) error {
	return scanJSON(src, l)
}

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	Role         string    `db:"role" json:"role"`
	FullName     *string   `db:"full_name" json:"full_name,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Location     *Location `db:"location" json:"location,omitempty"`
	GeoCell      *string   `db:"geo_cell" json:"-"`
	FarmVerified bool      `db:"farm_verified" json:"farm_verified"`
	Trusted      bool      `db:"trusted" json:"trusted"`
	StrikesCount int       `db:"strikes_count" json:"strikes_count"`
	RatingAvg    float64   `db:"rating_avg" json:"rating_avg"`
	RatingCount  int       `db:"rating_count" json:"rating_count"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName имя для выдачи: полное имя, иначе username.
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}

func (u *User) IsSuspended() bool {
	return u.Status == UserStatusSuspended
}
