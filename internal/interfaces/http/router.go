package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sam-bercovici/hydra-sidecar/docs"
	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/config"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/metrics"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/validation"
	"github.com/sam-bercovici/hydra-sidecar/internal/interfaces/http/handlers"
	"github.com/sam-bercovici/hydra-sidecar/internal/interfaces/http/middleware/logging"
	metricsmw "github.com/sam-bercovici/hydra-sidecar/internal/interfaces/http/middleware/metrics"
	"github.com/sam-bercovici/hydra-sidecar/internal/interfaces/http/middleware/ratelimit"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestTimeout   = 60 * time.Second
	visitorTTL       = 3 * time.Minute
	swaggerSpecRoute = "/swagger/doc.json"
)

// Services are the application services the HTTP surface exposes
type Services struct {
	Clients domain.ClientAdminService
	Sync    domain.SyncService
	Hook    domain.TokenHookService
	Health  domain.HealthChecker
}

type Router struct {
	router *chi.Mux
}

// NewRouter wires the HTTP surface. The rate limiter's background cleanup
// stops when ctx is done.
func NewRouter(
	ctx context.Context,
	cfg *config.Config,
	services Services,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Router {
	clientsHandler := handlers.NewClientsHandler(services.Clients, validation.New(cfg.HasherAlgorithm), logger)
	syncHandler := handlers.NewSyncHandler(services.Sync, logger)
	hookHandler := handlers.NewTokenHookHandler(services.Hook, logger)
	healthHandler := handlers.NewHealthHandler(services.Health, logger)

	router := createRouter(m, logger)

	rateLimiter := ratelimit.NewRateLimiter(ctx, rate.Limit(cfg.AdminRateLimit), cfg.AdminRateBurst, visitorTTL)
	inflight := metricsmw.Inflight(m)

	// Health check endpoints
	router.Group(func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/ready", healthHandler.Ready)
	})

	if m != nil {
		router.Handle("/metrics", m.Handler())
	}

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(swaggerSpecRoute),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
		httpSwagger.DeepLinking(true),
	))
	router.Get(swaggerSpecRoute, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(docs.SwaggerJSON)
	})

	// Called by the authorization server on every token issuance; never rate limited
	router.With(inflight).Post("/token-hook", hookHandler.HandleTokenHook)

	// Admin routes
	router.Route("/admin/clients", func(r chi.Router) {
		r.Use(rateLimiter.Middleware, inflight)
		r.Post("/", clientsHandler.CreateClientHandler)
		r.Post("/rotate/{id}", clientsHandler.RotateSecretHandler)
		r.Get("/{id}", clientsHandler.GetClientHandler)
		r.Delete("/{id}", clientsHandler.DeleteClientHandler)
	})

	router.Group(func(r chi.Router) {
		r.Use(rateLimiter.Middleware, inflight)
		r.Post("/sync/clients", syncHandler.SyncClientsHandler)
	})

	return &Router{router: router}
}

func createRouter(m *metrics.Metrics, logger *zap.Logger) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.RequestLogger(logger))
	router.Use(metricsmw.Middleware(m))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	return router
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
