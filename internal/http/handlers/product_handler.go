package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

type ProductHandler struct {
	products *service.ProductService
}

func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// Create POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req service.CreateProductInput
	if !common.BindJSON(c, &req) {
		return
	}

	product, err := h.products.Create(c.Request.Context(), actor, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Created(c, product)
}

// Update PATCH /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateProductInput
	if !common.BindJSON(c, &req) {
		return
	}

	product, err := h.products.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, product)
}

// Get GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, product)
}

// ListBySeller GET /farmers/:id/products
func (h *ProductHandler) ListBySeller(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	farmerID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	products, err := h.products.ListBySeller(c.Request.Context(), actor, farmerID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, products)
}

// Delete DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.products.Delete(c.Request.Context(), actor, id); err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// Restore POST /products/:id/restore
func (h *ProductHandler) Restore(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.products.Restore(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, product)
}
