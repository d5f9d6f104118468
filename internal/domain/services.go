package domain

import (
	"context"
	"encoding/json"
)

// AdminAPI is the authorization server's client administration API
type AdminAPI interface {
	// CreateClient forwards a client document and returns the created client
	CreateClient(ctx context.Context, body []byte) (json.RawMessage, error)

	// GetClient returns the client document, or ErrClientNotFound
	GetClient(ctx context.Context, clientID string) (json.RawMessage, error)

	// DeleteClient removes the client, or returns ErrClientNotFound
	DeleteClient(ctx context.Context, clientID string) error

	// RotateSecret issues a new secret and returns the updated client
	RotateSecret(ctx context.Context, clientID string) (json.RawMessage, error)

	// SetSecretExpiry replaces client_secret_expires_at on the client
	SetSecretExpiry(ctx context.Context, clientID string, expiresAt int64) (json.RawMessage, error)

	Ping(ctx context.Context) error
}

// ClientAdminService proxies client administration and enriches responses
// with the stored secret hash
type ClientAdminService interface {
	CreateClient(ctx context.Context, body []byte) (EnrichedClient, error)
	GetClient(ctx context.Context, clientID string) (json.RawMessage, error)
	DeleteClient(ctx context.Context, clientID string) error
	RotateSecret(ctx context.Context, clientID string, expiresAt *int64) (EnrichedClient, error)
}

// SyncService reconciles the stored clients against a target list
type SyncService interface {
	Sync(ctx context.Context, clients []ClientSpec) (*SyncResult, error)
}

// TokenHookService computes the extra claims of an access token
type TokenHookService interface {
	Handle(ctx context.Context, clientID string) (map[string]json.RawMessage, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}
