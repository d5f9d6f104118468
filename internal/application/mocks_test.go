package application

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/stretchr/testify/mock"
)

const (
	pbkdf2Hash = "$pbkdf2-sha256$i=25000,l=32$c2FsdHNhbHRzYWx0c2FsdA$Zm9vYmFyZm9vYmFyZm9vYmFyZm9vYmFyZm9vYmFyMTI"
	bcryptHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

var testNID = uuid.MustParse("0f3c9a52-7d1e-4b8a-a6c4-2e9b1d5f7a30")

// MockAdminAPI is a mock implementation of domain.AdminAPI
type MockAdminAPI struct {
	mock.Mock
}

func (m *MockAdminAPI) CreateClient(ctx context.Context, body []byte) (json.RawMessage, error) {
	args := m.Called(ctx, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockAdminAPI) GetClient(ctx context.Context, clientID string) (json.RawMessage, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockAdminAPI) DeleteClient(ctx context.Context, clientID string) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

func (m *MockAdminAPI) RotateSecret(ctx context.Context, clientID string) (json.RawMessage, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockAdminAPI) SetSecretExpiry(ctx context.Context, clientID string, expiresAt int64) (json.RawMessage, error) {
	args := m.Called(ctx, clientID, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockAdminAPI) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// fakeRepository is an in-memory domain.ClientRepository. Errors can be
// injected per operation and per client id.
type fakeRepository struct {
	mu       sync.Mutex
	nid      uuid.UUID
	nidErr   error
	nidCalls int
	clients  map[uuid.UUID]map[string]domain.Client

	listErr    error
	upsertErrs map[string]error
	deleteErrs map[string]error
	hashErr    error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		nid:        testNID,
		clients:    map[uuid.UUID]map[string]domain.Client{testNID: {}},
		upsertErrs: map[string]error{},
		deleteErrs: map[string]error{},
	}
}

func (f *fakeRepository) seed(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.clients[f.nid][id] = domain.Client{ID: id, SecretHash: pbkdf2Hash}
	}
}

func (f *fakeRepository) ids() map[string]struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := make(map[string]struct{})
	for id := range f.clients[f.nid] {
		set[id] = struct{}{}
	}
	return set
}

func (f *fakeRepository) get(id string) (domain.Client, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[f.nid][id]
	return c, ok
}

func (f *fakeRepository) DefaultNetworkID(ctx context.Context) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nidCalls++
	if f.nidErr != nil {
		return uuid.Nil, f.nidErr
	}
	return f.nid, nil
}

func (f *fakeRepository) GetSecretHash(ctx context.Context, nid uuid.UUID, clientID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashErr != nil {
		return "", f.hashErr
	}
	c, ok := f.clients[nid][clientID]
	if !ok {
		return "", domain.ErrClientNotFound
	}
	return c.SecretHash, nil
}

func (f *fakeRepository) ListClientIDs(ctx context.Context, nid uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]string, 0, len(f.clients[nid]))
	for id := range f.clients[nid] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRepository) UpsertClient(ctx context.Context, nid uuid.UUID, client *domain.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertErrs[client.ID]; err != nil {
		return err
	}
	if f.clients[nid] == nil {
		f.clients[nid] = map[string]domain.Client{}
	}
	stored := *client
	stored.NID = nid
	f.clients[nid][client.ID] = stored
	return nil
}

func (f *fakeRepository) DeleteClient(ctx context.Context, nid uuid.UUID, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErrs[clientID]; err != nil {
		return err
	}
	delete(f.clients[nid], clientID)
	return nil
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }

func (f *fakeRepository) Close() error { return nil }
