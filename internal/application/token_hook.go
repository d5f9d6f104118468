package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// TokenHook builds the extra access token claims for a client from its
// metadata. Lookup failures yield no claims; an expired client is refused.
type TokenHook struct {
	api     domain.AdminAPI
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewTokenHook creates a hook whose client lookup is bounded by timeout
func NewTokenHook(api domain.AdminAPI, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *TokenHook {
	return &TokenHook{
		api:     api,
		timeout: timeout,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

type hookClient struct {
	SecretExpiresAt int64           `json:"client_secret_expires_at"`
	Metadata        json.RawMessage `json:"metadata"`
}

// Handle returns the claims for clientID, or domain.ErrClientExpired
func (h *TokenHook) Handle(ctx context.Context, clientID string) (map[string]json.RawMessage, error) {
	claims := make(map[string]json.RawMessage)
	start := time.Now()

	if clientID == "" {
		h.logger.Warn("Token hook called without client_id")
		h.metrics.RecordHook(metrics.HookEmpty, 0)
		return claims, nil
	}

	client, err := h.lookup(ctx, clientID)
	elapsed := time.Since(start)
	if err != nil {
		h.logger.Warn("Failed to fetch client info, issuing token without custom claims",
			zap.String("client_id", clientID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		h.metrics.RecordHook(metrics.HookEmpty, elapsed)
		return claims, nil
	}

	if client.SecretExpiresAt > 0 && h.now().Unix() > client.SecretExpiresAt {
		h.logger.Warn("Client has expired",
			zap.String("client_id", clientID),
			zap.Int64("client_secret_expires_at", client.SecretExpiresAt))
		h.metrics.RecordHook(metrics.HookExpired, elapsed)
		return nil, domain.ErrClientExpired
	}

	if len(client.Metadata) > 0 {
		if err := json.Unmarshal(client.Metadata, &claims); err != nil || claims == nil {
			h.logger.Warn("Client metadata is not an object, ignoring",
				zap.String("client_id", clientID))
			claims = make(map[string]json.RawMessage)
		}
	}

	outcome := metrics.HookClaims
	if len(claims) == 0 {
		outcome = metrics.HookEmpty
	}
	h.metrics.RecordHook(outcome, elapsed)
	h.logger.Debug("Injecting metadata claims", zap.String("client_id", clientID), zap.Int("claims", len(claims)))

	return claims, nil
}

func (h *TokenHook) lookup(ctx context.Context, clientID string) (*hookClient, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	raw, err := h.api.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	var client hookClient
	if err := json.Unmarshal(raw, &client); err != nil {
		return nil, err
	}
	return &client, nil
}
