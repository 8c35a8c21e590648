package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/agromarket-backend/internal/pkg/apperror"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(45, 20, 20)
	assert.True(t, p.HasMore)
	require.NotNil(t, p.NextOffset)
	assert.Equal(t, 40, *p.NextOffset)

	last := NewPagination(45, 20, 40)
	assert.False(t, last.HasMore)
	assert.Nil(t, last.NextOffset)
}

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "app error", err: apperror.Conflict("жалоба уже рассмотрена"), wantCode: http.StatusConflict, wantBody: "CONFLICT"},
		{name: "неизвестная ошибка", err: errors.New("pq: connection reset"), wantCode: http.StatusInternalServerError, wantBody: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/reports", nil)

			Error(c, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantBody, body.Error.Code)
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}
