package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/metrics"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/password"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/validation"
	"go.uber.org/zap"
)

// syncStore is the part of ClientStore the reconciler needs
type syncStore interface {
	ResolveTenantID(ctx context.Context) (uuid.UUID, error)
	ListClientIDs(ctx context.Context) (map[string]struct{}, error)
	Upsert(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, clientID string) error
	Scheme() password.Scheme
}

// Reconciler makes the stored client set equal to a target list
type Reconciler struct {
	store     syncStore
	logger    *zap.Logger
	metrics   *metrics.Metrics
	validator *validation.Validator
	newID     func() string
}

// NewReconciler creates a new Reconciler
func NewReconciler(store syncStore, logger *zap.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		store:     store,
		logger:    logger,
		metrics:   m,
		validator: validation.New(store.Scheme()),
		newID:     domain.NewRunID,
	}
}

// Sync validates every entry, upserts them in order and deletes stored
// clients absent from the list. Validation failures reject the whole call
// before any write; later failures are recorded per client.
func (r *Reconciler) Sync(ctx context.Context, clients []domain.ClientSpec) (*domain.SyncResult, error) {
	start := time.Now()
	runID := r.newID()
	ctx = domain.WithRunID(ctx, runID)
	log := r.logger.With(zap.String("run_id", runID))

	if err := r.validate(clients, log); err != nil {
		r.metrics.RecordSyncRun("rejected", time.Since(start))
		return nil, err
	}

	if _, err := r.store.ResolveTenantID(ctx); err != nil {
		r.metrics.RecordSyncRun("error", time.Since(start))
		return nil, err
	}

	existing, err := r.store.ListClientIDs(ctx)
	if err != nil {
		r.metrics.RecordSyncRun("error", time.Since(start))
		return nil, fmt.Errorf("failed to get existing clients: %w", err)
	}

	log.Info("Sync started", zap.Int("target", len(clients)), zap.Int("existing", len(existing)))

	result := domain.NewSyncResult(runID)
	target := make(map[string]struct{}, len(clients))

	for i := range clients {
		client := clients[i].Client.WithDefaults()
		target[client.ID] = struct{}{}

		status := domain.SyncStatusCreated
		if _, ok := existing[client.ID]; ok {
			status = domain.SyncStatusUpdated
		}

		err := r.store.Upsert(ctx, &client)
		if err != nil {
			log.Error("Failed to upsert client", zap.String("client_id", client.ID), zap.Error(err))
		}
		r.record(result, client.ID, status, err)
	}

	orphans := make([]string, 0)
	for id := range existing {
		if _, ok := target[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)

	for _, id := range orphans {
		err := r.store.Delete(ctx, id)
		if err != nil {
			log.Error("Failed to delete client", zap.String("client_id", id), zap.Error(err))
		}
		r.record(result, id, domain.SyncStatusDeleted, err)
	}

	outcome := "converged"
	if !result.Converged() {
		outcome = "partial"
	}
	r.metrics.RecordSyncRun(outcome, time.Since(start))

	log.Info("Sync finished",
		zap.Int("created", result.CreatedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("deleted", result.DeletedCount),
		zap.Int("failed", result.FailedCount),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

func (r *Reconciler) record(result *domain.SyncResult, clientID string, status domain.SyncStatus, err error) {
	result.Record(clientID, status, err)
	if err != nil {
		status = domain.SyncStatusFailed
	}
	r.metrics.RecordSyncClient(string(status))
}

// validate checks the whole target before any write and warns about
// plaintext secrets, which are never stored
func (r *Reconciler) validate(clients []domain.ClientSpec, log *zap.Logger) error {
	if err := r.validator.Struct(domain.SyncTarget{Clients: clients}); err != nil {
		return err
	}

	for _, c := range clients {
		if c.Secret != "" {
			log.Warn("Ignoring plaintext client_secret in sync request, use client_secret_hash",
				zap.String("client_id", c.ID))
		}
	}
	return nil
}
