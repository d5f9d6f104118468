package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockClientAdminService is a mock implementation of domain.ClientAdminService
type MockClientAdminService struct {
	mock.Mock
}

func (m *MockClientAdminService) CreateClient(ctx context.Context, body []byte) (domain.EnrichedClient, error) {
	args := m.Called(ctx, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.EnrichedClient), args.Error(1)
}

func (m *MockClientAdminService) GetClient(ctx context.Context, clientID string) (json.RawMessage, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockClientAdminService) DeleteClient(ctx context.Context, clientID string) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

func (m *MockClientAdminService) RotateSecret(ctx context.Context, clientID string, expiresAt *int64) (domain.EnrichedClient, error) {
	args := m.Called(ctx, clientID, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.EnrichedClient), args.Error(1)
}

// MockSyncService is a mock implementation of domain.SyncService
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Sync(ctx context.Context, clients []domain.ClientSpec) (*domain.SyncResult, error) {
	args := m.Called(ctx, clients)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncResult), args.Error(1)
}

// MockTokenHookService is a mock implementation of domain.TokenHookService
type MockTokenHookService struct {
	mock.Mock
}

func (m *MockTokenHookService) Handle(ctx context.Context, clientID string) (map[string]json.RawMessage, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]json.RawMessage), args.Error(1)
}

// MockHealthChecker is a mock implementation of domain.HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
