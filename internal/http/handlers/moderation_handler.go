package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

// StatusInvalidator сбрасывает закэшированный статус аккаунта.
type StatusInvalidator interface {
	Invalidate(userID uuid.UUID)
}

type ModerationHandler struct {
	svc   *service.ModerationService
	cache StatusInvalidator
}

func NewModerationHandler(s *service.ModerationService, cache StatusInvalidator) *ModerationHandler {
	return &ModerationHandler{svc: s, cache: cache}
}

type noteRequest struct {
	Note *string `json:"note"`
}

func (h *ModerationHandler) invalidate(userID uuid.UUID) {
	if h.cache != nil {
		h.cache.Invalidate(userID)
	}
}

// CreateReport POST /reports
func (h *ModerationHandler) CreateReport(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req service.CreateReportInput
	if !common.BindJSON(c, &req) {
		return
	}

	report, err := h.svc.CreateReport(c.Request.Context(), actor.ID, req)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Created(c, report)
}

// AppealReport POST /reports/:id/appeal
func (h *ModerationHandler) AppealReport(c *gin.Context) {
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

	appeal, created, err := h.svc.AppealReport(c.Request.Context(), actor.ID, id, req.Reason)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	respondAppeal(c, appeal, created)
}

// AppealLatest POST /reports/appeal
func (h *ModerationHandler) AppealLatest(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	var req reasonRequest
	if !common.BindOptionalJSON(c, &req) {
		return
	}

	appeal, created, err := h.svc.AppealLatest(c.Request.Context(), actor.ID, req.Reason)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	respondAppeal(c, appeal, created)
}

func respondAppeal(c *gin.Context, appeal interface{}, created bool) {
	if created {
		response.Created(c, gin.H{"appeal": appeal, "created": true})
		return
	}
	response.Success(c, gin.H{"appeal": appeal, "created": false})
}

// MyAppeals GET /reports/appeals
func (h *ModerationHandler) MyAppeals(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	appeals, err := h.svc.MyAppeals(c.Request.Context(), actor.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, appeals)
}

// ListReports GET /admin/reports?status=
func (h *ModerationHandler) ListReports(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	reports, total, err := h.svc.ListReports(c.Request.Context(), strings.TrimSpace(c.Query("status")), limit, offset)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Paginated(c, reports, total, limit, offset)
}

// ValidateReport POST /admin/reports/:id/validate
func (h *ModerationHandler) ValidateReport(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req noteRequest
	if !common.BindOptionalJSON(c, &req) {
		return
	}

	result, err := h.svc.ValidateReport(c.Request.Context(), admin.ID, id, req.Note)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	if result.Suspended {
		h.invalidate(result.Report.ReportedUserID)
	}
	response.Success(c, result)
}

// RejectReport POST /admin/reports/:id/reject
func (h *ModerationHandler) RejectReport(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req noteRequest
	if !common.BindOptionalJSON(c, &req) {
		return
	}

	report, err := h.svc.RejectReport(c.Request.Context(), admin.ID, id, req.Note)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, report)
}

// Suspend POST /admin/users/:id/suspend
func (h *ModerationHandler) Suspend(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	userID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.Suspend(c.Request.Context(), admin.ID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	h.invalidate(userID)
	response.Success(c, result)
}

// Unsuspend POST /admin/users/:id/unsuspend
func (h *ModerationHandler) Unsuspend(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	userID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.Unsuspend(c.Request.Context(), admin.ID, userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	h.invalidate(userID)
	response.Success(c, result)
}

// Ban POST /admin/users/:id/ban
func (h *ModerationHandler) Ban(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	userID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Ban(c.Request.Context(), admin.ID, userID); err != nil {
		common.RespondError(c, err)
		return
	}
	h.invalidate(userID)
	response.Success(c, gin.H{"userId": userID, "status": "inactive"})
}

// ListAppeals GET /admin/reports/appeals?status=
func (h *ModerationHandler) ListAppeals(c *gin.Context) {
	appeals, err := h.svc.ListAppeals(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, appeals)
}

// ResolveAppeal POST /admin/reports/appeals/:id/resolve
func (h *ModerationHandler) ResolveAppeal(c *gin.Context) {
	admin, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req noteRequest
	if !common.BindOptionalJSON(c, &req) {
		return
	}

	appeal, err := h.svc.ResolveReportAppeal(c.Request.Context(), admin.ID, id, req.Note)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, appeal)
}
