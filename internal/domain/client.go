package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	// GrantTypeClientCredentials is applied when a synced client names no grant type
	GrantTypeClientCredentials = "client_credentials"
	// AuthMethodClientSecretBasic is applied when a synced client names no auth method
	AuthMethodClientSecretBasic = "client_secret_basic"
	// UserinfoAlgNone and SubjectTypePublic are the authorization server's own defaults
	UserinfoAlgNone   = "none"
	SubjectTypePublic = "public"
)

// Metadata is the caller-defined key/value payload of a client. Values are
// kept as raw JSON so they reach the issued token exactly as stored.
type Metadata map[string]json.RawMessage

// Client represents an OAuth2 client row in the authorization server's store
type Client struct {
	ID                        string          `json:"client_id" validate:"required"`
	Name                      string          `json:"client_name,omitempty"`
	SecretHash                string          `json:"client_secret_hash,omitempty" validate:"secret_hash"`
	GrantTypes                []string        `json:"grant_types,omitempty"`
	ResponseTypes             []string        `json:"response_types,omitempty"`
	Scope                     string          `json:"scope,omitempty"`
	Audience                  []string        `json:"audience,omitempty"`
	TokenEndpointAuthMethod   string          `json:"token_endpoint_auth_method,omitempty"`
	Owner                     string          `json:"owner,omitempty"`
	Metadata                  Metadata        `json:"metadata,omitempty"`
	SecretExpiresAt           int64           `json:"client_secret_expires_at"`
	RedirectURIs              []string        `json:"redirect_uris,omitempty"`
	PolicyURI                 string          `json:"policy_uri,omitempty"`
	TosURI                    string          `json:"tos_uri,omitempty"`
	ClientURI                 string          `json:"client_uri,omitempty"`
	LogoURI                   string          `json:"logo_uri,omitempty"`
	Contacts                  []string        `json:"contacts,omitempty"`
	SectorIdentifierURI       string          `json:"sector_identifier_uri,omitempty"`
	JWKS                      json.RawMessage `json:"jwks,omitempty"`
	JWKSURI                   string          `json:"jwks_uri,omitempty"`
	RequestURIs               []string        `json:"request_uris,omitempty"`
	RequestObjectSigningAlg   string          `json:"request_object_signing_alg,omitempty"`
	UserinfoSignedResponseAlg string          `json:"userinfo_signed_response_alg,omitempty"`
	SubjectType               string          `json:"subject_type,omitempty"`
	AllowedCORSOrigins        []string        `json:"allowed_cors_origins,omitempty"`
	PostLogoutRedirectURIs    []string        `json:"post_logout_redirect_uris,omitempty"`

	FrontchannelLogoutURI             string `json:"frontchannel_logout_uri,omitempty"`
	FrontchannelLogoutSessionRequired bool   `json:"frontchannel_logout_session_required,omitempty"`
	BackchannelLogoutURI              string `json:"backchannel_logout_uri,omitempty"`
	BackchannelLogoutSessionRequired  bool   `json:"backchannel_logout_session_required,omitempty"`

	NID uuid.UUID `json:"-"`
}

// WithDefaults fills the optional fields a sync entry may omit
func (c Client) WithDefaults() Client {
	if len(c.GrantTypes) == 0 {
		c.GrantTypes = []string{GrantTypeClientCredentials}
	}
	if c.TokenEndpointAuthMethod == "" {
		c.TokenEndpointAuthMethod = AuthMethodClientSecretBasic
	}
	if c.UserinfoSignedResponseAlg == "" {
		c.UserinfoSignedResponseAlg = UserinfoAlgNone
	}
	if c.SubjectType == "" {
		c.SubjectType = SubjectTypePublic
	}
	if c.Metadata == nil {
		c.Metadata = Metadata{}
	}
	return c
}

// ClientSpec is one entry of a sync target list.
type ClientSpec struct {
	Client
	// Secret is only decoded so that a populated plaintext can be detected
	// and ignored. It is never written anywhere.
	Secret string `json:"client_secret,omitempty"`
}

// EnrichedClient is an admin API client document, field for field, plus
// the fields the sidecar adds.
type EnrichedClient map[string]json.RawMessage

const (
	FieldClientID          = "client_id"
	FieldSecretHash        = "client_secret_hash"
	FieldSecretExpiresAt   = "client_secret_expires_at"
	FieldExpiryUpdateError = "expiry_update_error"
)

// ParseEnrichedClient decodes an admin API client document
func ParseEnrichedClient(raw []byte) (EnrichedClient, error) {
	var c EnrichedClient
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c == nil {
		c = EnrichedClient{}
	}
	return c, nil
}

// ClientID returns the client_id field, or "" when absent or not a string.
func (c EnrichedClient) ClientID() string {
	var id string
	if raw, ok := c[FieldClientID]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	return id
}

// Set stores v under key.
func (c EnrichedClient) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c[key] = raw
	return nil
}
