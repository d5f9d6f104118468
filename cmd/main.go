package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sam-bercovici/hydra-sidecar/internal/application"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/config"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/hydra"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/logger"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/metrics"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/repository"
	httprouter "github.com/sam-bercovici/hydra-sidecar/internal/interfaces/http"
	"go.uber.org/zap"
)

const (
	serviceName          = "hydra-sidecar"
	tenantStartupTries   = 5
	upstreamCheckTimeout = 5 * time.Second
)

// @title Hydra Sidecar API
// @version 1.0
// @description Client reconciliation and token hook sidecar for an Ory Hydra style authorization server
// @BasePath /
func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Env:         cfg.Environment,
		Level:       cfg.LogLevel,
		ServiceName: serviceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("Sidecar stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create database connection
	repo, err := repository.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
		log.Info("Database connection closed")
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	store := application.NewClientStore(repo, cfg.HasherAlgorithm, cfg.NetworkID, log, m)
	if nid, err := store.ResolveAtStartup(ctx, tenantStartupTries); err != nil {
		log.Warn("Network ID unresolved at startup, will retry on demand", zap.Error(err))
	} else {
		log.Info("Using network ID", zap.String("nid", nid.String()))
	}

	adminAPI := hydra.NewAdminClient(cfg.HydraAdminURL, cfg.UpstreamTimeout, log)
	checkUpstream(ctx, adminAPI, log)

	router := httprouter.NewRouter(ctx, cfg, httprouter.Services{
		Clients: application.NewAdminProxy(adminAPI, store, log),
		Sync:    application.NewReconciler(store, log, m),
		Hook:    application.NewTokenHook(adminAPI, cfg.HookTimeout, log, m),
		Health:  store,
	}, m, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server",
			zap.Int("port", cfg.ServerPort),
			zap.String("hydra_admin_url", cfg.HydraAdminURL),
			zap.String("hasher", string(cfg.HasherAlgorithm)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("Shutting down server...", zap.Duration("grace_period", cfg.ShutdownGracePeriod))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited properly")
	return nil
}

// checkUpstream logs whether the admin API answers. The sidecar starts
// either way.
func checkUpstream(ctx context.Context, api *hydra.AdminClient, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, upstreamCheckTimeout)
	defer cancel()

	if err := api.Ping(ctx); err != nil {
		log.Warn("Admin API not reachable yet", zap.Error(err))
	}
}
