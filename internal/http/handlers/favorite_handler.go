package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

type FavoriteHandler struct {
	svc *service.FavoriteService
}

func NewFavoriteHandler(s *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{svc: s}
}

// Toggle POST /favorites/:id
func (h *FavoriteHandler) Toggle(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	productID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	favorite, err := h.svc.Toggle(c.Request.Context(), actor.ID, productID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"is_favorite": favorite})
}

// Status GET /favorites/:id
func (h *FavoriteHandler) Status(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	productID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	favorite, err := h.svc.IsFavorite(c.Request.Context(), actor.ID, productID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"is_favorite": favorite})
}

// List GET /favorites
func (h *FavoriteHandler) List(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)

	products, err := h.svc.List(c.Request.Context(), actor.ID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, products)
}
