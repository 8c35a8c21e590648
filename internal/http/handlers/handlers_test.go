package handlers

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/agromarket-backend/internal/http/middleware"
	"github.com/ignatzorin/agromarket-backend/internal/models"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

func withActor(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Set(middleware.ContextRoleKey, role)
		c.Next()
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("всё работает", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler(map[string]Pinger{"database": stubPinger{}, "storage": nil}).Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var body HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, map[string]string{"database": "healthy"}, body.Checks)
	})

	t.Run("база недоступна", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler(map[string]Pinger{"database": stubPinger{err: errors.New("conn refused")}}).Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "conn refused")
	})
}

func TestLocationHandler_NearbyBadQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withActor(uuid.New(), models.RoleBuyer))
	h := NewLocationHandler(nil)
	r.GET("/location/nearby/farmers", h.NearbyFarmers)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/location/nearby/farmers?lat=north&lng=37.6", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestLocationHandler_UpdateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PATCH("/location", NewLocationHandler(nil).UpdateLocation)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/location", bytes.NewBufferString(`{"lat":1,"lng":2}`)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func multipartImage(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, "barn.png")
		require.NoError(t, err)
		_, err = part.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0})
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestVerificationHandler_Upload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewVerificationService(nil, nil, nil, nil, nil, nil, service.VerificationConfig{MaxUploadBytes: 1 << 20})

	newRouter := func() *gin.Engine {
		r := gin.New()
		r.Use(withActor(uuid.New(), models.RoleFarmer))
		r.POST("/verification/upload", NewVerificationHandler(svc).Upload)
		return r
	}

	t.Run("без файла", func(t *testing.T) {
		body, ct := multipartImage(t, "")
		req := httptest.NewRequest(http.MethodPost, "/verification/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("хранилище выключено", func(t *testing.T) {
		body, ct := multipartImage(t, "file")
		req := httptest.NewRequest(http.MethodPost, "/verification/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotImplemented, w.Code)
		assert.Equal(t, "NOT_IMPLEMENTED", decode(t, w).Error.Code)
	})
}

func TestVerificationHandler_UploadToken_StorageDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewVerificationService(nil, nil, nil, nil, nil, nil, service.VerificationConfig{})
	r := gin.New()
	r.Use(withActor(uuid.New(), models.RoleFarmer))
	r.POST("/verification/upload-token", NewVerificationHandler(svc).UploadToken)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verification/upload-token", bytes.NewBufferString(`{"filename":"barn.jpg"}`)))

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

type fakeAccounts struct {
	mock.Mock
}

func (f *fakeAccounts) Suspend(ctx context.Context, userID, actor uuid.UUID) (*repository.SuspendResult, error) {
	args := f.Called(userID, actor)
	res, _ := args.Get(0).(*repository.SuspendResult)
	return res, args.Error(1)
}

func (f *fakeAccounts) Unsuspend(ctx context.Context, userID, actor uuid.UUID) (*repository.UnsuspendResult, error) {
	args := f.Called(userID, actor)
	res, _ := args.Get(0).(*repository.UnsuspendResult)
	return res, args.Error(1)
}

func (f *fakeAccounts) Ban(ctx context.Context, userID, actor uuid.UUID) error {
	return f.Called(userID, actor).Error(0)
}

type silentNotifier struct{ calls int }

func (n *silentNotifier) Notify(context.Context, uuid.UUID, string, string, string, models.JSONMap) {
	n.calls++
}

type recordingInvalidator struct{ ids []uuid.UUID }

func (r *recordingInvalidator) Invalidate(id uuid.UUID) { r.ids = append(r.ids, id) }

func TestModerationHandler_SuspendInvalidatesStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	adminID, target := uuid.New(), uuid.New()

	accounts := new(fakeAccounts)
	accounts.On("Suspend", target, adminID).Return(&repository.SuspendResult{PausedOrders: []uuid.UUID{uuid.New(), uuid.New()}}, nil)
	notifier := &silentNotifier{}
	cache := &recordingInvalidator{}

	svc := service.NewModerationService(nil, accounts, nil, notifier, nil, 3)
	r := gin.New()
	r.Use(withActor(adminID, models.RoleAdmin))
	r.POST("/admin/users/:id/suspend", NewModerationHandler(svc, cache).Suspend)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/users/"+target.String()+"/suspend", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var result service.SuspensionResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, 2, result.PausedOrders)
	assert.Equal(t, []uuid.UUID{target}, cache.ids)
	assert.Equal(t, 1, notifier.calls)
}

func TestModerationHandler_BanSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	adminID := uuid.New()
	cache := &recordingInvalidator{}

	svc := service.NewModerationService(nil, new(fakeAccounts), nil, &silentNotifier{}, nil, 3)
	r := gin.New()
	r.Use(withActor(adminID, models.RoleAdmin))
	r.POST("/admin/users/:id/ban", NewModerationHandler(svc, cache).Ban)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/users/"+adminID.String()+"/ban", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, cache.ids)
}

type fakeIdentityUsers struct {
	mock.Mock
}

func (f *fakeIdentityUsers) Upsert(ctx context.Context, user *models.User) error {
	return f.Called(user).Error(0)
}

func (f *fakeIdentityUsers) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return f.Called(id, status).Error(0)
}

func TestWebhookHandler_Identity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "hook-secret"
	id := uuid.New()
	body := []byte(`{"type":"user.created","data":{"id":"` + id.String() + `","username":"ivanov","email":"i@farm.ru","role":"farmer"}}`)

	send := func(h *WebhookHandler, signature string) *httptest.ResponseRecorder {
		r := gin.New()
		r.POST("/webhooks/identity", h.Identity)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set("X-Webhook-Signature", signature)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("неверная подпись", func(t *testing.T) {
		users := new(fakeIdentityUsers)
		w := send(NewWebhookHandler(service.NewWebhookService(users, secret)), "sha256=deadbeef")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		users.AssertNotCalled(t, "Upsert", mock.Anything)
	})

	t.Run("подпись верна", func(t *testing.T) {
		users := new(fakeIdentityUsers)
		users.On("Upsert", mock.MatchedBy(func(u *models.User) bool {
			return u.ID == id && u.Role == models.RoleFarmer
		})).Return(nil)
		sig := "sha256=" + hex.EncodeToString(service.Sign([]byte(secret), body))

		w := send(NewWebhookHandler(service.NewWebhookService(users, secret)), sig)

		assert.Equal(t, http.StatusNoContent, w.Code)
		users.AssertExpectations(t)
	})
}

type stubProfiles map[uuid.UUID]*models.User

func (s stubProfiles) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (s stubProfiles) UpdateProfile(_ context.Context, id uuid.UUID, fullName, phone *string) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.FullName, u.Phone = fullName, phone
	return u, nil
}

func (s stubProfiles) SetTrusted(_ context.Context, id, _ uuid.UUID, trusted bool) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Trusted = trusted
	return u, nil
}

func TestProfileHandler_GetUserProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	name := "Пётр Иванов"
	farmer := &models.User{
		ID:           uuid.New(),
		Username:     "petr",
		Email:        "petr@farm.ru",
		Role:         models.RoleFarmer,
		FullName:     &name,
		Location:     &models.Location{Lat: 55.75, Lng: 37.61, City: "Москва"},
		FarmVerified: true,
		StrikesCount: 2,
	}
	h := NewProfileHandler(service.NewProfileService(stubProfiles{farmer.ID: farmer}))
	r := gin.New()
	r.GET("/users/:id", h.GetUserProfile)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/"+farmer.ID.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Москва")
	assert.Contains(t, body, name)
	assert.NotContains(t, body, "petr@farm.ru")
	assert.NotContains(t, body, "strikes_count")
	assert.NotContains(t, body, "55.75")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileHandler_UpdateProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	oldPhone := "+7 900 000-00-00"
	user := &models.User{ID: uuid.New(), Username: "anna", Role: models.RoleBuyer, Phone: &oldPhone}
	h := NewProfileHandler(service.NewProfileService(stubProfiles{user.ID: user}))
	r := gin.New()
	r.Use(withActor(user.ID, models.RoleBuyer))
	r.PATCH("/users/profile", h.UpdateProfile)

	patch := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/users/profile", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := patch(`{"full_name":"  Анна Смирнова "}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, user.FullName)
	assert.Equal(t, "Анна Смирнова", *user.FullName)
	assert.Equal(t, &oldPhone, user.Phone)

	w = patch(`{"phone":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, user.Phone)

	w = patch(`{"phone":"позвоните мне"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)

	w = patch(`{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileHandler_SetTrusted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	farmer := &models.User{ID: uuid.New(), Username: "petr", Role: models.RoleFarmer}
	h := NewProfileHandler(service.NewProfileService(stubProfiles{farmer.ID: farmer}))
	r := gin.New()
	r.Use(withActor(uuid.New(), models.RoleAdmin))
	r.POST("/admin/users/:id/trust", h.SetTrusted)

	post := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/users/"+id+"/trust", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(farmer.ID.String(), `{"trusted":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, farmer.Trusted)

	w = post(farmer.ID.String(), `{"trusted":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, farmer.Trusted)

	w = post(farmer.ID.String(), `{"trusted":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(farmer.ID.String(), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(uuid.NewString(), `{"trusted":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_ValidationPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withActor(uuid.New(), models.RoleFarmer))
	h := NewOrderHandler(nil)
	r.PATCH("/orders/:id/status", h.UpdateStatus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/orders/not-a-uuid/status", bytes.NewBufferString(`{"status":"accepted"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/orders/"+uuid.NewString()+"/status", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
