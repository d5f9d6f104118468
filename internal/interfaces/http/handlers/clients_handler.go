package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/logger"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/validation"
	httperrors "github.com/sam-bercovici/hydra-sidecar/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// RotateSecretRequest is the optional body of a rotate call
type RotateSecretRequest struct {
	SecretExpiresAt *int64 `json:"client_secret_expires_at,omitempty" validate:"omitempty,gte=0"`
}

// ClientsHandler exposes client administration over HTTP
type ClientsHandler struct {
	service   domain.ClientAdminService
	validator *validation.Validator
	logger    *zap.Logger
}

// NewClientsHandler creates a new ClientsHandler
func NewClientsHandler(service domain.ClientAdminService, validator *validation.Validator, logger *zap.Logger) *ClientsHandler {
	return &ClientsHandler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// CreateClientHandler godoc
// @Summary Create a client
// @Description Forwards the client document to the authorization server and adds the stored client_secret_hash to the response
// @Tags clients
// @Accept json
// @Produce json
// @Param client body object true "Admin API client document"
// @Success 201 {object} domain.EnrichedClient
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 429 {object} httperrors.ErrorResponse
// @Failure 502 {object} httperrors.ErrorResponse
// @Router /admin/clients [post]
func (h *ClientsHandler) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context(), h.logger)

	body, err := readBody(w, r)
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	client, err := h.service.CreateClient(r.Context(), body)
	if err != nil {
		log.Error("Failed to create client", zap.Error(err))
		httperrors.RespondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, client, log)
}

// GetClientHandler godoc
// @Summary Get a client
// @Description Returns the client exactly as the authorization server stores it
// @Tags clients
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} domain.EnrichedClient
// @Failure 404 {object} httperrors.ErrorResponse
// @Failure 429 {object} httperrors.ErrorResponse
// @Failure 502 {object} httperrors.ErrorResponse
// @Router /admin/clients/{id} [get]
func (h *ClientsHandler) GetClientHandler(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")

	client, err := h.service.GetClient(r.Context(), clientID)
	if err != nil {
		if !errors.Is(err, domain.ErrClientNotFound) {
			logger.From(r.Context(), h.logger).Error("Failed to get client", zap.String("client_id", clientID), zap.Error(err))
		}
		httperrors.RespondWithError(w, err)
		return
	}

	respondRaw(w, http.StatusOK, client)
}

// DeleteClientHandler godoc
// @Summary Delete a client
// @Tags clients
// @Param id path string true "Client ID"
// @Success 204
// @Failure 404 {object} httperrors.ErrorResponse
// @Failure 429 {object} httperrors.ErrorResponse
// @Failure 502 {object} httperrors.ErrorResponse
// @Router /admin/clients/{id} [delete]
func (h *ClientsHandler) DeleteClientHandler(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")

	if err := h.service.DeleteClient(r.Context(), clientID); err != nil {
		if !errors.Is(err, domain.ErrClientNotFound) {
			logger.From(r.Context(), h.logger).Error("Failed to delete client", zap.String("client_id", clientID), zap.Error(err))
		}
		httperrors.RespondWithError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RotateSecretHandler godoc
// @Summary Rotate a client secret
// @Description Rotates the secret and optionally sets client_secret_expires_at. A failed expiry update is reported in expiry_update_error.
// @Tags clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param request body RotateSecretRequest false "New expiry"
// @Success 200 {object} domain.EnrichedClient
// @Failure 400 {object} httperrors.ErrorResponse
// @Failure 404 {object} httperrors.ErrorResponse
// @Failure 429 {object} httperrors.ErrorResponse
// @Failure 502 {object} httperrors.ErrorResponse
// @Router /admin/clients/rotate/{id} [post]
func (h *ClientsHandler) RotateSecretHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context(), h.logger)
	clientID := chi.URLParam(r, "id")

	body, err := readBody(w, r)
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}

	var req RotateSecretRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httperrors.RespondWithError(w, domain.ErrInvalidField.WithField(domain.FieldSecretExpiresAt, err))
			return
		}
	}
	if err := h.validator.Struct(req); err != nil {
		log.Warn("Invalid rotate request", zap.String("client_id", clientID), zap.Error(err))
		httperrors.RespondWithError(w, err)
		return
	}

	client, err := h.service.RotateSecret(r.Context(), clientID, req.SecretExpiresAt)
	if err != nil {
		log.Error("Failed to rotate client secret", zap.String("client_id", clientID), zap.Error(err))
		httperrors.RespondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, client, log)
}
