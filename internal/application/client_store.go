package application

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/metrics"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/password"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const tenantLookupTimeout = 5 * time.Second

// ClientStore scopes client persistence to the authorization server's
// network. The network ID is resolved once and cached; until it resolves,
// every call retries the lookup.
type ClientStore struct {
	repo    domain.ClientRepository
	scheme  password.Scheme
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	nid   uuid.UUID
	group singleflight.Group
}

// NewClientStore creates a store over repo. A non-nil networkID pins the
// tenant and skips the lookup.
func NewClientStore(repo domain.ClientRepository, scheme password.Scheme, networkID uuid.UUID, logger *zap.Logger, m *metrics.Metrics) *ClientStore {
	return &ClientStore{
		repo:    repo,
		scheme:  scheme,
		logger:  logger,
		metrics: m,
		nid:     networkID,
	}
}

// ResolveTenantID returns the cached network ID or looks it up.
// Concurrent lookups share one query.
func (s *ClientStore) ResolveTenantID(ctx context.Context) (uuid.UUID, error) {
	s.mu.RLock()
	nid := s.nid
	s.mu.RUnlock()
	if nid != uuid.Nil {
		return nid, nil
	}

	ch := s.group.DoChan("nid", func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tenantLookupTimeout)
		defer cancel()

		nid, err := s.repo.DefaultNetworkID(lookupCtx)
		s.metrics.RecordTenantResolution(err)
		if err != nil {
			return uuid.Nil, err
		}

		s.mu.Lock()
		s.nid = nid
		s.mu.Unlock()
		s.logger.Info("Resolved network ID", zap.String("nid", nid.String()))
		return nid, nil
	})

	select {
	case <-ctx.Done():
		return uuid.Nil, domain.ErrTenantUnresolved.Wrap(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return uuid.Nil, domain.ErrTenantUnresolved.Wrap(res.Err)
		}
		return res.Val.(uuid.UUID), nil
	}
}

// ResolveAtStartup retries the network lookup with exponential backoff.
// A failure is returned to the caller but leaves the store usable.
func (s *ClientStore) ResolveAtStartup(ctx context.Context, maxTries uint) (uuid.UUID, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 250 * time.Millisecond
	expBackoff.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() (uuid.UUID, error) {
		return s.ResolveTenantID(ctx)
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("Network ID lookup failed, retrying",
				zap.Error(err),
				zap.Duration("next_attempt", next))
		}),
	)
}

// GetSecretHash returns the stored hash of a client
func (s *ClientStore) GetSecretHash(ctx context.Context, clientID string) (string, error) {
	nid, err := s.ResolveTenantID(ctx)
	if err != nil {
		return "", err
	}
	return s.repo.GetSecretHash(ctx, nid, clientID)
}

// ListClientIDs returns the set of client ids in the network
func (s *ClientStore) ListClientIDs(ctx context.Context) (map[string]struct{}, error) {
	nid, err := s.ResolveTenantID(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := s.repo.ListClientIDs(ctx, nid)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Upsert writes the full client row. The hash is checked again here so no
// write path can store a hash of the wrong scheme.
func (s *ClientStore) Upsert(ctx context.Context, client *domain.Client) error {
	if client.ID == "" {
		return domain.ErrMissingClientID
	}
	if err := password.Validate(client.SecretHash, s.scheme); err != nil {
		return domain.ErrInvalidHash.WithField("client_secret_hash", err)
	}

	nid, err := s.ResolveTenantID(ctx)
	if err != nil {
		return err
	}
	return s.repo.UpsertClient(ctx, nid, client)
}

// Delete removes a client. Deleting an absent client succeeds.
func (s *ClientStore) Delete(ctx context.Context, clientID string) error {
	nid, err := s.ResolveTenantID(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteClient(ctx, nid, clientID); err != nil {
		return err
	}

	fields := []zap.Field{zap.String("client_id", clientID)}
	if runID, ok := domain.GetRunID(ctx); ok {
		fields = append(fields, zap.String("run_id", runID))
	}
	s.logger.Info("Client deleted", fields...)
	return nil
}

// Ping checks the underlying database
func (s *ClientStore) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Scheme returns the configured hashing scheme
func (s *ClientStore) Scheme() password.Scheme {
	return s.scheme
}
