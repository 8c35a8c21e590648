package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

// NotificationHandler обслуживает маршруты уведомлений.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications обрабатывает GET /notifications.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	notifications, err := h.notifications.ListNotifications(c.Request.Context(), actor.ID, limit, offset, unreadOnly)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, notifications)
}

// CountUnread GET /notifications/unread-count
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}

	count, err := h.notifications.CountUnread(c.Request.Context(), actor.ID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"count": count})
}

// MarkAsRead PUT /notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), id, actor.ID); err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"read": true})
}

// DeleteNotification DELETE /notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	actor, ok := common.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.DeleteNotification(c.Request.Context(), id, actor.ID); err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// AuditLogs GET /admin/audit?limit=
func (h *NotificationHandler) AuditLogs(c *gin.Context) {
	logs, err := h.notifications.AuditLogs(c.Request.Context(), common.ParseIntQuery(c, "limit", 100))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	response.Success(c, logs)
}
