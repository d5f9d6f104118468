package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/logger"
	httperrors "github.com/sam-bercovici/hydra-sidecar/internal/interfaces/http/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// TokenHookResponse is the token hook answer the authorization server expects
type TokenHookResponse struct {
	Session TokenHookSession `json:"session"`
}

// TokenHookSession holds the claims added to the access token
type TokenHookSession struct {
	AccessToken map[string]json.RawMessage `json:"access_token"`
}

// OAuth2Error is the error shape the authorization server relays to clients
type OAuth2Error struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenHookHandler serves the authorization server's token hook
type TokenHookHandler struct {
	service domain.TokenHookService
	logger  *zap.Logger
}

// NewTokenHookHandler creates a new TokenHookHandler
func NewTokenHookHandler(service domain.TokenHookService, logger *zap.Logger) *TokenHookHandler {
	return &TokenHookHandler{
		service: service,
		logger:  logger,
	}
}

var errHookBodyShape = errors.New("token hook body must be an object")

// clientIDFrom reads request.client_id, then session.client_id. A body whose
// request or session, or their client_id, has the wrong JSON type is an
// error; an absent client_id is not.
func clientIDFrom(body []byte) (string, error) {
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return "", errHookBodyShape
	}

	for _, key := range []string{"request", "session"} {
		part := root.Get(key)
		if !part.Exists() || part.Type == gjson.Null {
			continue
		}
		if !part.IsObject() {
			return "", fmt.Errorf("%s must be an object", key)
		}
		id := part.Get("client_id")
		if id.Exists() && id.Type != gjson.String && id.Type != gjson.Null {
			return "", fmt.Errorf("%s.client_id must be a string", key)
		}
	}

	for _, path := range []string{"request.client_id", "session.client_id"} {
		if v := root.Get(path); v.Str != "" {
			return v.Str, nil
		}
	}
	return "", nil
}

// HandleTokenHook godoc
// @Summary Token hook
// @Description Returns the client's metadata as extra access token claims. Lookup failures yield empty claims. Expired clients are refused.
// @Tags hook
// @Accept json
// @Produce json
// @Param request body object true "Token hook payload with request.client_id or session.client_id"
// @Success 200 {object} TokenHookResponse
// @Failure 400 {object} httperrors.ErrorResponse "Body is not a JSON object of the expected shape"
// @Failure 403 {object} OAuth2Error
// @Router /token-hook [post]
func (h *TokenHookHandler) HandleTokenHook(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context(), h.logger)

	body, err := readBody(w, r)
	if err != nil {
		httperrors.RespondWithError(w, err)
		return
	}
	if !gjson.ValidBytes(body) {
		log.Warn("Token hook body is not valid JSON")
		httperrors.RespondWithError(w, domain.ErrInvalidRequestBody)
		return
	}

	clientID, err := clientIDFrom(body)
	if err != nil {
		log.Warn("Token hook body has an unexpected shape", zap.Error(err))
		httperrors.RespondWithError(w, domain.ErrInvalidRequestBody.Wrap(err))
		return
	}

	claims, err := h.service.Handle(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, domain.ErrClientExpired) {
			respondJSON(w, http.StatusForbidden, OAuth2Error{
				Error:            "access_denied",
				ErrorDescription: "client has expired",
			}, log)
			return
		}
		log.Error("Token hook failed", zap.Error(err))
		httperrors.RespondWithError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TokenHookResponse{
		Session: TokenHookSession{AccessToken: claims},
	}, log)
}
