package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

type EarningsHandler struct {
	earnings *service.EarningsService
}

func NewEarningsHandler(earnings *service.EarningsService) *EarningsHandler {
	return &EarningsHandler{earnings: earnings}
}

// FarmerSummary GET /earnings/farmer/summary
func (h *EarningsHandler) FarmerSummary(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	summary, err := h.earnings.FarmerSummary(c.Request.Context(), actor)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, summary)
}
