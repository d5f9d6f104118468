package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestHealthHandler(t *testing.T) {
	checker := new(MockHealthChecker)
	handler := NewHealthHandler(checker, zap.NewNop())

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	checker.AssertNotCalled(t, "Ping", mock.Anything)
}

func TestReadyHandler(t *testing.T) {
	t.Run("Ready", func(t *testing.T) {
		checker := new(MockHealthChecker)
		checker.On("Ping", mock.Anything).Return(nil)
		handler := NewHealthHandler(checker, zap.NewNop())

		w := httptest.NewRecorder()
		handler.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("Database down", func(t *testing.T) {
		checker := new(MockHealthChecker)
		checker.On("Ping", mock.Anything).Return(errors.New("connection refused"))
		handler := NewHealthHandler(checker, zap.NewNop())

		w := httptest.NewRecorder()
		handler.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"code":"S0042","message":"Database connection failed"}`, w.Body.String())
	})
}
