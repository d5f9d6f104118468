package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/database"
	"go.uber.org/zap"
)

// upsertClientSQL writes every column of a hydra_client row
const upsertClientSQL = `
	INSERT INTO hydra_client (
		id, nid, client_name, client_secret, scope, owner,
		grant_types, response_types, audience, token_endpoint_auth_method,
		metadata, client_secret_expires_at,
		redirect_uris, policy_uri, tos_uri, client_uri, logo_uri, contacts,
		sector_identifier_uri, jwks, jwks_uri, request_uris,
		request_object_signing_alg, userinfo_signed_response_alg, subject_type,
		allowed_cors_origins, post_logout_redirect_uris,
		frontchannel_logout_uri, frontchannel_logout_session_required,
		backchannel_logout_uri, backchannel_logout_session_required,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10,
		$11, $12,
		$13, $14, $15, $16, $17, $18,
		$19, $20, $21, $22,
		$23, $24, $25,
		$26, $27,
		$28, $29,
		$30, $31,
		CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
	)
	ON CONFLICT (id, nid) DO UPDATE SET
		client_name = EXCLUDED.client_name,
		client_secret = EXCLUDED.client_secret,
		scope = EXCLUDED.scope,
		owner = EXCLUDED.owner,
		grant_types = EXCLUDED.grant_types,
		response_types = EXCLUDED.response_types,
		audience = EXCLUDED.audience,
		token_endpoint_auth_method = EXCLUDED.token_endpoint_auth_method,
		metadata = EXCLUDED.metadata,
		client_secret_expires_at = EXCLUDED.client_secret_expires_at,
		redirect_uris = EXCLUDED.redirect_uris,
		policy_uri = EXCLUDED.policy_uri,
		tos_uri = EXCLUDED.tos_uri,
		client_uri = EXCLUDED.client_uri,
		logo_uri = EXCLUDED.logo_uri,
		contacts = EXCLUDED.contacts,
		sector_identifier_uri = EXCLUDED.sector_identifier_uri,
		jwks = EXCLUDED.jwks,
		jwks_uri = EXCLUDED.jwks_uri,
		request_uris = EXCLUDED.request_uris,
		request_object_signing_alg = EXCLUDED.request_object_signing_alg,
		userinfo_signed_response_alg = EXCLUDED.userinfo_signed_response_alg,
		subject_type = EXCLUDED.subject_type,
		allowed_cors_origins = EXCLUDED.allowed_cors_origins,
		post_logout_redirect_uris = EXCLUDED.post_logout_redirect_uris,
		frontchannel_logout_uri = EXCLUDED.frontchannel_logout_uri,
		frontchannel_logout_session_required = EXCLUDED.frontchannel_logout_session_required,
		backchannel_logout_uri = EXCLUDED.backchannel_logout_uri,
		backchannel_logout_session_required = EXCLUDED.backchannel_logout_session_required,
		updated_at = EXCLUDED.updated_at
`

// ClientRepository implements domain.ClientRepository over the
// authorization server's hydra_client table
type ClientRepository struct {
	db     database.DB
	logger *zap.Logger
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db database.DB, logger *zap.Logger) *ClientRepository {
	return &ClientRepository{
		db:     db,
		logger: logger,
	}
}

// Open connects to the database named by dsn and returns a repository over it
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*ClientRepository, error) {
	db, err := database.Open(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Client store opened", zap.String("driver", string(db.Driver())))
	return NewClientRepository(db, logger), nil
}

// DefaultNetworkID returns the id of the first row of the networks table
func (r *ClientRepository) DefaultNetworkID(ctx context.Context) (uuid.UUID, error) {
	var raw string
	err := r.db.QueryRow(ctx, `SELECT CAST(id AS TEXT) FROM networks LIMIT 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return uuid.Nil, domain.ErrTenantUnresolved.Wrapf("networks table is empty")
		}
		return uuid.Nil, domain.ErrDatabaseQuery.Wrap(err)
	}

	nid, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrTenantUnresolved.Wrap(err)
	}
	return nid, nil
}

// GetSecretHash returns the client_secret column of a client
func (r *ClientRepository) GetSecretHash(ctx context.Context, nid uuid.UUID, clientID string) (string, error) {
	var secret string
	err := r.db.QueryRow(ctx,
		`SELECT client_secret FROM hydra_client WHERE id = $1 AND nid = $2`,
		clientID, nid.String(),
	).Scan(&secret)
	if err != nil {
		return "", mapNotFound(err)
	}
	return secret, nil
}

// ListClientIDs lists the ids of every client in the network
func (r *ClientRepository) ListClientIDs(ctx context.Context, nid uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM hydra_client WHERE nid = $1`, nid.String())
	if err != nil {
		return nil, domain.ErrDatabaseQuery.Wrap(err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrDatabaseQuery.Wrap(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDatabaseQuery.Wrap(err)
	}
	return ids, nil
}

// UpsertClient inserts the client or overwrites every column of the existing row
func (r *ClientRepository) UpsertClient(ctx context.Context, nid uuid.UUID, client *domain.Client) error {
	lists := [][]string{
		client.GrantTypes, client.ResponseTypes, client.Audience,
		client.RedirectURIs, client.Contacts, client.RequestURIs,
		client.AllowedCORSOrigins, client.PostLogoutRedirectURIs,
	}
	encoded := make([]string, len(lists))
	for i, values := range lists {
		v, err := encodeList(values)
		if err != nil {
			return err
		}
		encoded[i] = v
	}
	metadata, err := encodeMetadata(client.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, upsertClientSQL,
		client.ID, nid.String(), client.Name, client.SecretHash, client.Scope, client.Owner,
		encoded[0], encoded[1], encoded[2], client.TokenEndpointAuthMethod,
		metadata, client.SecretExpiresAt,
		encoded[3], client.PolicyURI, client.TosURI, client.ClientURI, client.LogoURI, encoded[4],
		client.SectorIdentifierURI, encodeJWKS(client.JWKS), client.JWKSURI, encoded[5],
		client.RequestObjectSigningAlg, client.UserinfoSignedResponseAlg, client.SubjectType,
		encoded[6], encoded[7],
		client.FrontchannelLogoutURI, client.FrontchannelLogoutSessionRequired,
		client.BackchannelLogoutURI, client.BackchannelLogoutSessionRequired,
	)
	if err != nil {
		return domain.ErrDatabaseQuery.Wrap(err)
	}
	return nil
}

// DeleteClient removes a client row. A missing row is not an error.
func (r *ClientRepository) DeleteClient(ctx context.Context, nid uuid.UUID, clientID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM hydra_client WHERE id = $1 AND nid = $2`, clientID, nid.String()); err != nil {
		return domain.ErrDatabaseQuery.Wrap(err)
	}
	return nil
}

// Ping checks the database connection
func (r *ClientRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close releases the database connection
func (r *ClientRepository) Close() error {
	return r.db.Close()
}

func mapNotFound(err error) error {
	if errors.Is(err, database.ErrNoRows) {
		return domain.ErrClientNotFound
	}
	return domain.ErrDatabaseQuery.Wrap(err)
}

// encodeList stores a nil list as an empty JSON array
func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func encodeMetadata(metadata domain.Metadata) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

// encodeJWKS stores an absent key set as an empty object
func encodeJWKS(jwks json.RawMessage) string {
	if len(jwks) == 0 || string(jwks) == "null" {
		return "{}"
	}
	return string(jwks)
}
