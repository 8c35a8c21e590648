package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
)

// UUIDParams проверяет, что перечисленные параметры пути являются UUID.
// Использование: group.POST("/:id/approve", UUIDParams("id"), h.Approve)
func UUIDParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			if _, err := uuid.Parse(c.Param(name)); err != nil {
				response.BadRequest(c, "параметр "+name+" должен быть валидным UUID")
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
