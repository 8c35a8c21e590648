package common

import (
	"errors"
	"io"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/agromarket-backend/internal/http/middleware"
	"github.com/ignatzorin/agromarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

var (
	// ErrUserNotFound в контексте нет пользователя (маршрут без AuthMiddleware).
	ErrUserNotFound = errors.New("пользователь не найден в контексте")

	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentUserID извлекает userID, положенный AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}

func CurrentUserRole(c *gin.Context) (string, error) {
	raw, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return "", ErrUserNotFound
	}

	role, ok := raw.(string)
	if !ok {
		return "", ErrUserNotFound
	}

	return role, nil
}

// CurrentActor пользователь запроса вместе с ролью. При ошибке ответ уже отправлен.
func CurrentActor(c *gin.Context) (service.Actor, bool) {
	userID, err := CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return service.Actor{}, false
	}
	role, _ := CurrentUserRole(c)
	return service.Actor{ID: userID, Role: role}, true
}

// ParseUUIDParam разбирает UUID из параметра пути. При ошибке ответ уже отправлен.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		response.BadRequest(c, "неверный "+paramName)
		return uuid.Nil, false
	}
	return parsed, true
}

// BindJSON разбирает тело запроса. При ошибке ответ уже отправлен.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return false
	}
	return true
}

// BindOptionalJSON как BindJSON, но пустое тело допустимо.
func BindOptionalJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "некорректное тело запроса")
		return false
	}
	return true
}

// RespondError отдаёт ошибку сервиса единым форматом.
func RespondError(c *gin.Context, err error) {
	response.Error(c, err)
}

// ParseIntQuery читает целый query-параметр с запасным значением.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// ParseFloatQuery nil, если параметра нет; ошибка валидации для нечисла.
func ParseFloatQuery(c *gin.Context, key string) (*float64, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil, apperror.Validation("параметр " + key + " должен быть числом")
	}
	return &parsed, nil
}

// GetPagination limit и offset из query с умолчаниями.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
