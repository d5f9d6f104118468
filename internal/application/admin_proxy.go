package application

import (
	"context"
	"encoding/json"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/password"
	"go.uber.org/zap"
)

// hashReader is the part of ClientStore the proxy needs
type hashReader interface {
	GetSecretHash(ctx context.Context, clientID string) (string, error)
	Scheme() password.Scheme
}

// AdminProxy forwards client administration to the authorization server
// and adds the stored secret hash to create and rotate responses
type AdminProxy struct {
	api    domain.AdminAPI
	store  hashReader
	logger *zap.Logger
}

// NewAdminProxy creates a new AdminProxy
func NewAdminProxy(api domain.AdminAPI, store hashReader, logger *zap.Logger) *AdminProxy {
	return &AdminProxy{
		api:    api,
		store:  store,
		logger: logger,
	}
}

// CreateClient forwards body unchanged. An upstream refusal is returned as
// a *domain.UpstreamStatusError.
func (p *AdminProxy) CreateClient(ctx context.Context, body []byte) (domain.EnrichedClient, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, domain.ErrInvalidRequestBody.Wrapf("body must be a JSON object")
	}

	raw, err := p.api.CreateClient(ctx, body)
	if err != nil {
		return nil, err
	}

	client, err := domain.ParseEnrichedClient(raw)
	if err != nil {
		return nil, domain.ErrUpstreamUnavailable.Wrapf("malformed create response: %w", err)
	}

	p.enrich(ctx, client)
	p.logger.Info("Client created", zap.String("client_id", client.ClientID()))
	return client, nil
}

// GetClient returns the upstream client document unchanged
func (p *AdminProxy) GetClient(ctx context.Context, clientID string) (json.RawMessage, error) {
	if clientID == "" {
		return nil, domain.ErrMissingClientID
	}
	return p.api.GetClient(ctx, clientID)
}

// DeleteClient deletes a client upstream
func (p *AdminProxy) DeleteClient(ctx context.Context, clientID string) error {
	if clientID == "" {
		return domain.ErrMissingClientID
	}
	if err := p.api.DeleteClient(ctx, clientID); err != nil {
		return err
	}
	p.logger.Info("Client deleted", zap.String("client_id", clientID))
	return nil
}

// RotateSecret rotates the secret, then applies expiresAt when given. The
// two upstream calls are not atomic: when the expiry update fails the
// rotation still stands and the failure is reported in the response.
func (p *AdminProxy) RotateSecret(ctx context.Context, clientID string, expiresAt *int64) (domain.EnrichedClient, error) {
	if clientID == "" {
		return nil, domain.ErrMissingClientID
	}

	raw, err := p.api.RotateSecret(ctx, clientID)
	if err != nil {
		return nil, err
	}

	client, err := domain.ParseEnrichedClient(raw)
	if err != nil {
		return nil, domain.ErrUpstreamUnavailable.Wrapf("malformed rotate response: %w", err)
	}

	if expiresAt != nil {
		if _, err := p.api.SetSecretExpiry(ctx, clientID, *expiresAt); err != nil {
			p.logger.Warn("Secret rotated but expiry update failed",
				zap.String("client_id", clientID),
				zap.Int64("client_secret_expires_at", *expiresAt),
				zap.Error(err))
			_ = client.Set(domain.FieldExpiryUpdateError, err.Error())
		} else {
			_ = client.Set(domain.FieldSecretExpiresAt, *expiresAt)
		}
	}

	p.enrich(ctx, client)
	p.logger.Info("Client secret rotated", zap.String("client_id", clientID))
	return client, nil
}

// enrich adds client_secret_hash. A failed read or a hash of the wrong
// scheme leaves the field out.
func (p *AdminProxy) enrich(ctx context.Context, client domain.EnrichedClient) {
	clientID := client.ClientID()
	if clientID == "" {
		p.logger.Warn("Upstream response has no client_id, cannot add secret hash")
		return
	}

	hash, err := p.store.GetSecretHash(ctx, clientID)
	if err != nil {
		p.logger.Warn("Could not retrieve hashed secret", zap.String("client_id", clientID), zap.Error(err))
		return
	}
	if err := password.Validate(hash, p.store.Scheme()); err != nil {
		p.logger.Error("Stored hash does not match the configured scheme",
			zap.String("client_id", clientID),
			zap.String("scheme", string(p.store.Scheme())),
			zap.Error(err))
		return
	}
	_ = client.Set(domain.FieldSecretHash, hash)
}
