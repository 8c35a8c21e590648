package service

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/models"
)

// Actor текущий пользователь запроса: идентификатор и роль из токена.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsFarmer() bool {
	return a.Role == models.RoleFarmer
}
