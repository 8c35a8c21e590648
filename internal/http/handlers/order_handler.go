package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler создаёт новый хэндлер.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder обрабатывает POST /orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req service.CreateOrderInput
	if !common.BindJSON(c, &req) {
		return
	}

	order, err := h.orders.Create(c.Request.Context(), actor, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Created(c, order)
}

// ListMyOrders GET /orders?status=&limit=&offset=
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)

	orders, err := h.orders.ListMine(c.Request.Context(), actor, strings.TrimSpace(c.Query("status")), limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, orders)
}

// GetOrder GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// UpdateStatus PATCH /orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if !common.BindJSON(c, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// MarkDelivered POST /orders/:id/delivered
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.MarkDelivered(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// Cancel POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// History GET /orders/:id/history
func (h *OrderHandler) History(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	history, err := h.orders.History(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, history)
}
