package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	httperrors "github.com/sam-bercovici/hydra-sidecar/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

const readinessTimeout = 5 * time.Second

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	store  domain.HealthChecker
	logger *zap.Logger
}

// NewHealthHandler creates a handler whose readiness depends on store
func NewHealthHandler(store domain.HealthChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		logger: logger,
	}
}

// Health godoc
// @Summary Liveness
// @Tags health
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Ready godoc
// @Summary Readiness
// @Description Reports whether the client store answers
// @Tags health
// @Produce plain
// @Success 200 {string} string "OK"
// @Failure 503 {object} httperrors.ErrorResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		httperrors.RespondWithError(w, domain.ErrStoreUnavailable.Wrap(err))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
