package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// CreateReview POST /orders/:id/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	orderID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Rating  int     `json:"rating" binding:"required,min=1,max=5"`
		Comment *string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "рейтинг должен быть от 1 до 5")
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), orderID, actor.ID, req.Rating, req.Comment)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Created(c, review)
}

// GetReview GET /reviews/:id
func (h *ReviewHandler) GetReview(c *gin.Context) {
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	review, err := h.reviews.GetReview(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, review)
}

// ListUserReviews GET /users/:id/reviews
func (h *ReviewHandler) ListUserReviews(c *gin.Context) {
	userID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)

	reviews, err := h.reviews.ListUserReviews(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, reviews)
}

// CanLeaveReview GET /orders/:id/can-review
func (h *ReviewHandler) CanLeaveReview(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	orderID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	can, err := h.reviews.CanLeaveReview(c.Request.Context(), orderID, actor.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"can_review": can})
}

// AddComment POST /reviews/:id/comments
func (h *ReviewHandler) AddComment(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	reviewID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	comment, err := h.reviews.AddComment(c.Request.Context(), actor, reviewID, req.Text)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Created(c, comment)
}

// ListComments GET /reviews/:id/comments
func (h *ReviewHandler) ListComments(c *gin.Context) {
	reviewID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.reviews.ListComments(c.Request.Context(), reviewID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, comments)
}

// DeleteReview DELETE /admin/reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.reviews.DeleteReview(c.Request.Context(), actor, id); err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
