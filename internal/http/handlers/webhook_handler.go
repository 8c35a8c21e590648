package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/agromarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/logger"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

const (
	webhookSignatureHeader = "X-Webhook-Signature"
	maxWebhookBody         = 1 << 20
)

type WebhookHandler struct {
	svc *service.WebhookService
}

func NewWebhookHandler(s *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: s}
}

// Identity POST /webhooks/identity
func (h *WebhookHandler) Identity(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "не удалось прочитать тело")
		return
	}

	if !h.svc.VerifySignature(body, c.GetHeader(webhookSignatureHeader)) {
		logger.Log.WithField("ip", c.ClientIP()).Warn("webhook: неверная подпись")
		response.Unauthorized(c, "неверная подпись")
		return
	}

	if err := h.svc.Handle(c.Request.Context(), body); err != nil {
		common.RespondError(c, err)
		return
	}
	response.NoContent(c)
}
