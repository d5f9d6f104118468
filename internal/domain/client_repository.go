package domain

import (
	"context"

	"github.com/google/uuid"
)

// ClientRepository defines data access to the authorization server's client
// rows. Every operation is scoped to one network (tenant).
type ClientRepository interface {
	// DefaultNetworkID returns the id of the first network row
	DefaultNetworkID(ctx context.Context) (uuid.UUID, error)

	// GetSecretHash returns the stored secret hash of a client
	GetSecretHash(ctx context.Context, nid uuid.UUID, clientID string) (string, error)

	// ListClientIDs lists the ids of every client in the network
	ListClientIDs(ctx context.Context, nid uuid.UUID) ([]string, error)

	// UpsertClient inserts the client or overwrites every mutable field of an existing row
	UpsertClient(ctx context.Context, nid uuid.UUID, client *Client) error

	// DeleteClient removes a client. Deleting an absent client is not an error.
	DeleteClient(ctx context.Context, nid uuid.UUID, clientID string) error

	Ping(ctx context.Context) error
	Close() error
}
