package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/logger"
	httperrors "github.com/sam-bercovici/hydra-sidecar/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// SyncHandler exposes client reconciliation over HTTP
type SyncHandler struct {
	service domain.SyncService
	logger  *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service domain.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		logger:  logger,
	}
}

// SyncClientsHandler godoc
// @Summary Reconcile clients
// @Description Makes the stored client set equal to the given list. Stored clients absent from the list are deleted.
// @Tags sync
// @Accept json
// @Produce json
// @Param target body domain.SyncTarget true "Desired client set"
// @Success 200 {object} domain.SyncResult
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 429 {object} httperrors.ErrorResponse
// @Failure 500 {object} httperrors.ErrorResponse
// @Router /sync/clients [post]
func (h *SyncHandler) SyncClientsHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context(), h.logger)

	body, err := readBody(w, r)
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	var req domain.SyncTarget
	if err := json.Unmarshal(body, &req); err != nil {
		log.Warn("Failed to decode sync request", zap.Error(err))
		httperrors.RespondWithError(w, domain.ErrInvalidRequestBody.Wrap(err))
		return
	}

	result, err := h.service.Sync(r.Context(), req.Clients)
	if err != nil {
		if httperrors.StatusOf(err) >= http.StatusInternalServerError {
			log.Error("Sync failed", zap.Error(err))
		} else {
			log.Warn("Sync rejected", zap.Error(err))
		}
		httperrors.RespondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result, log)
}
