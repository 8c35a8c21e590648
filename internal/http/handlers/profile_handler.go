package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// publicProfile профиль без контактов, страйков и точных координат.
type publicProfile struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	City         string    `json:"city,omitempty"`
	FarmVerified bool      `json:"farm_verified"`
	Trusted      bool      `json:"trusted"`
	RatingAvg    float64   `json:"rating_avg"`
	RatingCount  int       `json:"rating_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type setTrustedRequest struct {
	Trusted *bool `json:"trusted" binding:"required"`
}

// GetMe GET /users/me
func (h *ProfileHandler) GetMe(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	user, err := h.profiles.Get(c.Request.Context(), actor.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateProfile PATCH /users/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req service.ProfileUpdate
	if !common.BindJSON(c, &req) {
		return
	}

	user, err := h.profiles.Update(c.Request.Context(), actor, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, user)
}

// GetUserProfile возвращает публичный профиль пользователя по ID.
func (h *ProfileHandler) GetUserProfile(c *gin.Context) {
	userID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	profile := publicProfile{
		ID:           user.ID,
		Username:     user.Username,
		Name:         user.DisplayName(),
		Role:         user.Role,
		FarmVerified: user.FarmVerified,
		Trusted:      user.Trusted,
		RatingAvg:    user.RatingAvg,
		RatingCount:  user.RatingCount,
		CreatedAt:    user.CreatedAt,
	}
	if user.Location != nil {
		profile.City = user.Location.City
	}
	response.Success(c, profile)
}

// SetTrusted POST /admin/users/:id/trust
func (h *ProfileHandler) SetTrusted(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	userID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req setTrustedRequest
	if !common.BindJSON(c, &req) {
		return
	}

	user, err := h.profiles.SetTrusted(c.Request.Context(), actor, userID, *req.Trusted)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, user)
}
