package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/agromarket-backend/internal/logger"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
)

// StatusLookup статус аккаунта по id.
type StatusLookup interface {
	Status(ctx context.Context, userID uuid.UUID) (string, error)
}

// RequireNotSuspended закрывает изменяющие запросы для заблокированных
// пользователей. Ставится после AuthMiddleware на все маршруты, меняющие
// пользовательский контент. allowAdminBypass пропускает администраторов
// без обращения к базе.
func RequireNotSuspended(lookup StatusLookup, allowAdminBypass bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if allowAdminBypass && c.GetString(ContextRoleKey) == models.RoleAdmin {
			c.Next()
			return
		}

		raw, ok := c.Get(ContextUserIDKey)
		userID, _ := raw.(uuid.UUID)
		if !ok || userID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}

		status, err := lookup.Status(c.Request.Context(), userID)
		if apperror.IsNotFound(err) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "пользователь не найден"})
			return
		}
		if err != nil {
			logger.Log.WithFields(logrus.Fields{"user_id": userID}).WithError(err).Error("не удалось проверить статус аккаунта")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
			return
		}

		switch status {
		case models.UserStatusSuspended:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "аккаунт заблокирован, действие недоступно",
				"code":  string(apperror.ErrCodeSuspended),
			})
			return
		case models.UserStatusInactive:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "аккаунт деактивирован",
				"code":  string(apperror.ErrCodeForbidden),
			})
			return
		}
		c.Next()
	}
}
