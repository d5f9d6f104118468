package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var hookNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestHook(api *MockAdminAPI) *TokenHook {
	h := NewTokenHook(api, time.Second, zap.NewNop(), nil)
	h.now = func() time.Time { return hookNow }
	return h
}

func clientDoc(expiresAt int64, metadata string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"client_id":"c1","client_secret_expires_at":%d,"metadata":%s}`, expiresAt, metadata))
}

func TestTokenHook_Handle_MetadataBecomesClaims(t *testing.T) {
	api := new(MockAdminAPI)
	api.On("GetClient", mock.Anything, "c1").Return(clientDoc(0, `{"org_id":"acme","tier":"premium"}`), nil)

	claims, err := newTestHook(api).Handle(context.Background(), "c1")
	require.NoError(t, err)

	out, err := json.Marshal(claims)
	require.NoError(t, err)
	assert.JSONEq(t, `{"org_id":"acme","tier":"premium"}`, string(out))
	api.AssertExpectations(t)
}

func TestTokenHook_Handle_NestedValuesPassThrough(t *testing.T) {
	api := new(MockAdminAPI)
	api.On("GetClient", mock.Anything, "c1").
		Return(clientDoc(0, `{"roles":["a","b"],"limits":{"rps":10},"beta":true,"weight":1.5,"none":null}`), nil)

	claims, err := newTestHook(api).Handle(context.Background(), "c1")
	require.NoError(t, err)

	assert.JSONEq(t, `["a","b"]`, string(claims["roles"]))
	assert.JSONEq(t, `{"rps":10}`, string(claims["limits"]))
	assert.Equal(t, "true", string(claims["beta"]))
	assert.Equal(t, "1.5", string(claims["weight"]))
	assert.Equal(t, "null", string(claims["none"]))
}

func TestTokenHook_Handle_ExpiredClient(t *testing.T) {
	yesterday := hookNow.Add(-24 * time.Hour).Unix()
	api := new(MockAdminAPI)
	api.On("GetClient", mock.Anything, "c1").Return(clientDoc(yesterday, `{"tier":"gold"}`), nil)

	claims, err := newTestHook(api).Handle(context.Background(), "c1")
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, domain.ErrClientExpired)
}

func TestTokenHook_Handle_ExpiryBoundary(t *testing.T) {
	now := hookNow.Unix()
	tests := []struct {
		name      string
		expiresAt int64
		expired   bool
	}{
		{name: "never expires", expiresAt: 0},
		{name: "expires in the future", expiresAt: now + 3600},
		{name: "expires exactly now", expiresAt: now},
		{name: "expired one second ago", expiresAt: now - 1, expired: true},
		{name: "expired long ago", expiresAt: 1, expired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockAdminAPI)
			api.On("GetClient", mock.Anything, "c1").Return(clientDoc(tt.expiresAt, `{"k":"v"}`), nil)

			claims, err := newTestHook(api).Handle(context.Background(), "c1")
			if tt.expired {
				assert.ErrorIs(t, err, domain.ErrClientExpired)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, `"v"`, string(claims["k"]))
		})
	}
}

func TestTokenHook_Handle_FailsOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*MockAdminAPI)
	}{
		{
			name: "upstream unavailable",
			setup: func(m *MockAdminAPI) {
				m.On("GetClient", mock.Anything, "c1").Return(nil, domain.ErrUpstreamUnavailable.Wrap(errors.New("connection refused")))
			},
		},
		{
			name: "client not found",
			setup: func(m *MockAdminAPI) {
				m.On("GetClient", mock.Anything, "c1").Return(nil, domain.ErrClientNotFound)
			},
		},
		{
			name: "malformed client document",
			setup: func(m *MockAdminAPI) {
				m.On("GetClient", mock.Anything, "c1").Return(json.RawMessage(`{"client_secret_expires_at":"soon"`), nil)
			},
		},
		{
			name: "metadata is not an object",
			setup: func(m *MockAdminAPI) {
				m.On("GetClient", mock.Anything, "c1").Return(clientDoc(0, `["a"]`), nil)
			},
		},
		{
			name: "metadata is null",
			setup: func(m *MockAdminAPI) {
				m.On("GetClient", mock.Anything, "c1").Return(clientDoc(0, `null`), nil)
			},
		},
		{
			name: "no metadata",
			setup: func(m *MockAdminAPI) {
				m.On("GetClient", mock.Anything, "c1").Return(json.RawMessage(`{"client_id":"c1"}`), nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockAdminAPI)
			tt.setup(api)

			claims, err := newTestHook(api).Handle(context.Background(), "c1")
			require.NoError(t, err)
			require.NotNil(t, claims)
			assert.Empty(t, claims)
		})
	}
}

func TestTokenHook_Handle_EmptyClientID(t *testing.T) {
	api := new(MockAdminAPI)

	claims, err := newTestHook(api).Handle(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, claims)
	api.AssertNotCalled(t, "GetClient", mock.Anything, mock.Anything)
}

func TestTokenHook_Handle_LookupIsBounded(t *testing.T) {
	api := new(MockAdminAPI)
	api.On("GetClient", mock.Anything, "c1").
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, domain.ErrUpstreamUnavailable.Wrap(context.DeadlineExceeded))

	h := newTestHook(api)
	h.timeout = 20 * time.Millisecond

	start := time.Now()
	claims, err := h.Handle(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, claims)
	assert.Less(t, time.Since(start), 2*time.Second)
}
