package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

type stubStatus struct {
	status string
	err    error
	calls  int
}

func (s *stubStatus) Status(_ context.Context, _ uuid.UUID) (string, error) {
	s.calls++
	return s.status, s.err
}

func withUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

func okHandler(c *gin.Context) { c.Status(http.StatusNoContent) }

func TestRequireNotSuspended(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		role   string
		bypass bool
		lookup *stubStatus
		want   int
		code   string
	}{
		{name: "активный", role: models.RoleBuyer, lookup: &stubStatus{status: models.UserStatusActive}, want: http.StatusNoContent},
		{name: "заблокирован", role: models.RoleFarmer, lookup: &stubStatus{status: models.UserStatusSuspended}, want: http.StatusForbidden, code: "SUSPENDED"},
		{name: "админ без обхода", role: models.RoleAdmin, lookup: &stubStatus{status: models.UserStatusSuspended}, want: http.StatusForbidden, code: "SUSPENDED"},
		{name: "админ с обходом", role: models.RoleAdmin, bypass: true, lookup: &stubStatus{status: models.UserStatusSuspended}, want: http.StatusNoContent},
		{name: "деактивирован", role: models.RoleBuyer, lookup: &stubStatus{status: models.UserStatusInactive}, want: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "нет в базе", role: models.RoleBuyer, lookup: &stubStatus{err: apperror.ErrUserNotFound}, want: http.StatusUnauthorized},
		{name: "ошибка базы", role: models.RoleBuyer, lookup: &stubStatus{err: errors.New("conn reset")}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/orders", withUser(uuid.New(), tt.role), RequireNotSuspended(tt.lookup, tt.bypass), okHandler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))

			assert.Equal(t, tt.want, w.Code)
			if tt.code != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.code, body["code"])
				assert.NotEmpty(t, body["error"])
			}
			if tt.bypass {
				assert.Zero(t, tt.lookup.calls)
			}
		})
	}
}

func TestRequireNotSuspended_NoUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/orders", RequireNotSuspended(&stubStatus{status: models.UserStatusActive}, false), okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := service.NewTokenManager("test-secret-test-secret-test-secret", time.Hour)
	userID := uuid.New()
	token, err := tokens.Issue(userID, models.RoleFarmer)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(tokens), RequireRole(models.RoleFarmer, models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(ContextUserIDKey).(uuid.UUID).String())
	})
	r.GET("/admin", AuthMiddleware(tokens), RequireRole(models.RoleAdmin), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func limitedRouter(t *testing.T, client redis.UniversalClient) *gin.Engine {
	t.Helper()
	store, err := NewLimiterStore(client)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/reports", RateLimitMiddleware(store, 2, time.Minute), okHandler)
	return r
}

func hit(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reports", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_Memory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := limitedRouter(t, nil)

	assert.Equal(t, http.StatusNoContent, hit(r).Code)
	w := hit(r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r).Code)
}

func TestRateLimitMiddleware_Redis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	r := limitedRouter(t, client)
	assert.Equal(t, http.StatusNoContent, hit(r).Code)
	assert.Equal(t, http.StatusNoContent, hit(r).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r).Code)

	// Счётчики живут в redis, второй экземпляр видит тот же лимит.
	other := limitedRouter(t, client)
	assert.Equal(t, http.StatusTooManyRequests, hit(other).Code)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	r.GET("/x", okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUUIDParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/reports/:id/validate", UUIDParams("id"), okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reports/abc/validate", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reports/"+uuid.NewString()+"/validate", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
