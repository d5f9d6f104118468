package hydra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// AdminClient calls the authorization server's client administration API.
// It never retries.
type AdminClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// NewAdminClient creates a client for the admin API at baseURL. Every call
// is bounded by timeout.
func NewAdminClient(baseURL string, timeout time.Duration, logger *zap.Logger) *AdminClient {
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     logger,
	}
}

type jsonPatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// CreateClient posts a client document to the admin API
func (c *AdminClient) CreateClient(ctx context.Context, body []byte) (json.RawMessage, error) {
	status, respBody, err := c.do(ctx, http.MethodPost, "/admin/clients", "application/json", body)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, &domain.UpstreamStatusError{StatusCode: status, Body: respBody}
	}
	return respBody, nil
}

// GetClient fetches a client document by id
func (c *AdminClient) GetClient(ctx context.Context, clientID string) (json.RawMessage, error) {
	status, respBody, err := c.do(ctx, http.MethodGet, clientPath(clientID), "", nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, domain.ErrClientNotFound
	case status != http.StatusOK:
		return nil, &domain.UpstreamStatusError{StatusCode: status, Body: respBody}
	}
	return respBody, nil
}

// DeleteClient deletes a client by id
func (c *AdminClient) DeleteClient(ctx context.Context, clientID string) error {
	status, respBody, err := c.do(ctx, http.MethodDelete, clientPath(clientID), "", nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return domain.ErrClientNotFound
	default:
		return &domain.UpstreamStatusError{StatusCode: status, Body: respBody}
	}
}

// RotateSecret asks the admin API to issue a new client secret
func (c *AdminClient) RotateSecret(ctx context.Context, clientID string) (json.RawMessage, error) {
	status, respBody, err := c.do(ctx, http.MethodPost, clientPath(clientID)+"/rotate", "application/json", nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, domain.ErrClientNotFound
	case status >= http.StatusBadRequest:
		return nil, &domain.UpstreamStatusError{StatusCode: status, Body: respBody}
	}
	return respBody, nil
}

// SetSecretExpiry patches client_secret_expires_at on a client
func (c *AdminClient) SetSecretExpiry(ctx context.Context, clientID string, expiresAt int64) (json.RawMessage, error) {
	patch, err := json.Marshal([]jsonPatchOp{{
		Op:    "replace",
		Path:  "/" + domain.FieldSecretExpiresAt,
		Value: expiresAt,
	}})
	if err != nil {
		return nil, err
	}

	status, respBody, err := c.do(ctx, http.MethodPatch, clientPath(clientID), "application/json", patch)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, &domain.UpstreamStatusError{StatusCode: status, Body: respBody}
	}
	return respBody, nil
}

// Ping checks that the admin API answers its health endpoint
func (c *AdminClient) Ping(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/health/alive", "", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return domain.ErrUpstreamUnavailable.Wrapf("health check returned %d", status)
	}
	return nil
}

func (c *AdminClient) do(ctx context.Context, method, path, contentType string, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, domain.ErrInternal.Wrap(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if requestID, ok := domain.GetRequestID(ctx); ok {
		req.Header.Set("X-Request-Id", requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Admin API call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return 0, nil, domain.ErrUpstreamUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, domain.ErrUpstreamUnavailable.Wrapf("read response: %w", err)
	}

	c.logger.Debug("Admin API call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return resp.StatusCode, respBody, nil
}

func clientPath(clientID string) string {
	return fmt.Sprintf("/admin/clients/%s", url.PathEscape(clientID))
}
