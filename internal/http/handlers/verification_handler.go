package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

type VerificationHandler struct {
	svc *service.VerificationService
}

func NewVerificationHandler(s *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{svc: s}
}

type uploadTokenRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType"`
}

type submitVerificationRequest struct {
	Images     []service.ImageRef `json:"images"`
	DeviceInfo models.JSONMap     `json:"deviceInfo"`
}

type respondMoreRequest struct {
	Images []service.ImageRef `json:"images"`
	Note   *string            `json:"note"`
}

type reasonRequest struct {
	Reason *string `json:"reason"`
}

type commentRequest struct {
	Text          string `json:"text" binding:"required"`
	VisibleToUser bool   `json:"visibleToUser"`
}

type resolveAppealRequest struct {
	Note      *string `json:"note"`
	Reinstate bool    `json:"reinstate"`
}

// UploadToken POST /verification/upload-token
func (h *VerificationHandler) UploadToken(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req uploadTokenRequest
	if !common.BindJSON(c, &req) {
		return
	}

	ticket, err := h.svc.IssueUploadToken(c.Request.Context(), actor.ID, req.Filename, req.ContentType)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Created(c, ticket)
}

// Upload POST /verification/upload (multipart, поле file)
func (h *VerificationHandler) Upload(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "файл не передан")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}
	defer src.Close()

	ticket, err := h.svc.UploadDirect(c.Request.Context(), actor.ID, file.Filename, src, file.Size)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Created(c, ticket)
}

// Submit POST /verification/submit
func (h *VerificationHandler) Submit(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req submitVerificationRequest
	if !common.BindJSON(c, &req) {
		return
	}

	sub, err := h.svc.Submit(c.Request.Context(), actor.ID, req.Images, req.DeviceInfo)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Created(c, sub)
}

// MyStatus GET /verification/me
func (h *VerificationHandler) MyStatus(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	status, err := h.svc.MyStatus(c.Request.Context(), actor.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"status": status})
}

// MyLatest GET /verification/me/latest
func (h *VerificationHandler) MyLatest(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	sub, err := h.svc.MyLatest(c.Request.Context(), actor.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, sub)
}

// GetStatus GET /verification/:id
func (h *VerificationHandler) GetStatus(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	sub, err := h.svc.GetStatus(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, sub)
}

// RespondMore POST /verification/:id/respond
func (h *VerificationHandler) RespondMore(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req respondMoreRequest
	if !common.BindJSON(c, &req) {
		return
	}

	sub, err := h.svc.RespondMore(c.Request.Context(), actor.ID, id, req.Images, req.Note)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, sub)
}

// Appeal POST /verification/:id/appeal
func (h *VerificationHandler) Appeal(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req reasonRequest
	if !common.BindOptionalJSON(c, &req) {
		return
	}

	result, err := h.svc.Appeal(c.Request.Context(), actor.ID, id, req.Reason)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if result.Created {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

// AdminList GET /admin/verification?status=
func (h *VerificationHandler) AdminList(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	subs, total, err := h.svc.List(c.Request.Context(), strings.TrimSpace(c.Query("status")), limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Paginated(c, subs, total, limit, offset)
}

// AdminGet GET /admin/verification/:id
func (h *VerificationHandler) AdminGet(c *gin.Context) {
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	details, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, details)
}

// Approve POST /admin/verification/:id/approve
func (h *VerificationHandler) Approve(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	sub, err := h.svc.Approve(c.Request.Context(), admin.ID, id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, sub)
}

// Reject POST /admin/verification/:id/reject
func (h *VerificationHandler) Reject(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req reasonRequest
	if !common.BindOptionalJSON(c, &req) {
		return
	}

	sub, err := h.svc.Reject(c.Request.Context(), admin.ID, id, req.Reason)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, sub)
}

// RequestMoreInfo POST /admin/verification/:id/request-more
func (h *VerificationHandler) RequestMoreInfo(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req reasonRequest
	if !common.BindOptionalJSON(c, &req) {
		return
	}
	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}

	sub, err := h.svc.RequestMoreInfo(c.Request.Context(), admin.ID, id, reason)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, sub)
}

// Comment POST /admin/verification/:id/comments
func (h *VerificationHandler) Comment(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req commentRequest
	if !common.BindJSON(c, &req) {
		return
	}

	sub, err := h.svc.Comment(c.Request.Context(), admin.ID, id, req.Text, req.VisibleToUser)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, sub)
}

// ListAppeals GET /admin/verification/appeals?status=
func (h *VerificationHandler) ListAppeals(c *gin.Context) {
	appeals, err := h.svc.ListAppeals(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, appeals)
}

// ResolveAppeal POST /admin/verification/appeals/:id/resolve
func (h *VerificationHandler) ResolveAppeal(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req resolveAppealRequest
	if !common.BindOptionalJSON(c, &req) {
		return
	}

	appeal, err := h.svc.ResolveAppeal(c.Request.Context(), admin.ID, id, req.Note, req.Reinstate)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, appeal)
}
