package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/database"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/http/handler"
	"github.com/straye-as/pipeline-api/internal/http/middleware"
	"github.com/straye-as/pipeline-api/internal/metrics"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/straye-as/pipeline-api/docs" // Import generated swagger docs
)

// ReadinessCheck reports the health of an optional dependency such as the
// loan warehouse. A nil error means healthy.
type ReadinessCheck func(r *http.Request) error

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	db               *gorm.DB
	metrics          *metrics.Metrics
	authMiddleware   *auth.Middleware
	rateLimiter      *middleware.RateLimiter
	stageHandler     *handler.StageHandler
	pipelineHandler  *handler.PipelineHandler
	dealHandler      *handler.DealHandler
	financialHandler *handler.FinancialHandler
	readiness        map[string]ReadinessCheck
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	m *metrics.Metrics,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	stageHandler *handler.StageHandler,
	pipelineHandler *handler.PipelineHandler,
	dealHandler *handler.DealHandler,
	financialHandler *handler.FinancialHandler,
) *Router {
	return &Router{
		cfg:              cfg,
		logger:           logger,
		db:               db,
		metrics:          m,
		authMiddleware:   authMiddleware,
		rateLimiter:      rateLimiter,
		stageHandler:     stageHandler,
		pipelineHandler:  pipelineHandler,
		dealHandler:      dealHandler,
		financialHandler: financialHandler,
		readiness:        make(map[string]ReadinessCheck),
	}
}

// AddReadinessCheck registers an extra dependency reported by /health/ready
func (rt *Router) AddReadinessCheck(name string, check ReadinessCheck) {
	rt.readiness[name] = check
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Timeout(rt.cfg.Server.RequestTimeoutDuration()))
	if rt.metrics != nil {
		r.Use(middleware.Metrics(rt.metrics))
	}
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database health check with pool statistics
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("database health check failed", zap.Error(err))
			writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		writeHealth(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{"status": "healthy"}
		}

		for name, check := range rt.readiness {
			if err := check(r); err != nil {
				rt.logger.Warn("dependency health check failed", zap.String("dependency", name), zap.Error(err))
				checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
				allHealthy = false
				continue
			}
			checks[name] = map[string]interface{}{"status": "healthy"}
		}

		status, code := "healthy", http.StatusOK
		if !allHealthy {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		writeHealth(w, code, map[string]interface{}{"status": status, "checks": checks})
	})

	if rt.metrics != nil && rt.cfg.Metrics.Enabled {
		path := rt.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, rt.metrics.Handler())
	}

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	perm := rt.authMiddleware.RequirePermission

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.Limit)

		r.Route("/pipeline", func(r chi.Router) {
			r.With(perm(domain.PermissionPipelineRead)).Get("/stages", rt.stageHandler.List)
			r.With(perm(domain.PermissionPipelineConfigure)).Post("/stages/refresh", rt.stageHandler.Refresh)
			r.With(perm(domain.PermissionPipelineRead)).Get("/items", rt.pipelineHandler.List)
			r.With(perm(domain.PermissionDealsWrite)).Post("/items/{kind}/{id}/move", rt.pipelineHandler.Move)
		})

		r.Route("/deals", func(r chi.Router) {
			r.With(perm(domain.PermissionDealsRead)).Get("/", rt.dealHandler.List)
			r.With(perm(domain.PermissionDealsWrite)).Post("/", rt.dealHandler.Create)
			r.With(perm(domain.PermissionDealsRead)).Get("/{id}", rt.dealHandler.GetByID)
			r.With(perm(domain.PermissionDealsWrite)).Put("/{id}", rt.dealHandler.Update)
			r.With(perm(domain.PermissionDealsDelete)).Delete("/{id}", rt.dealHandler.Delete)
			r.With(perm(domain.PermissionDealsWrite)).Post("/{id}/won", rt.dealHandler.Win)
			r.With(perm(domain.PermissionDealsWrite)).Post("/{id}/lost", rt.dealHandler.Lose)
			r.With(perm(domain.PermissionDealsWrite)).Post("/{id}/reopen", rt.dealHandler.Reopen)
			r.With(perm(domain.PermissionDealsRead)).Get("/{id}/history", rt.dealHandler.History)
		})

		r.With(perm(domain.PermissionQuotesConvert)).Post("/quotes/{id}/convert", rt.dealHandler.ConvertQuote)

		r.Route("/financials", func(r chi.Router) {
			r.Use(perm(domain.PermissionFinancialsRead))
			r.Get("/summary", rt.financialHandler.Summary)
			r.Get("/deals", rt.financialHandler.ListDeals)
			r.Get("/deals/{opportunityId}", rt.financialHandler.GetDeal)
			r.Get("/snapshots/{date}", rt.financialHandler.GetSnapshot)
			r.Get("/opportunities", rt.financialHandler.ListOpportunities)
			r.With(perm(domain.PermissionPipelineConfigure)).Post("/opportunities/sync", rt.financialHandler.SyncOpportunities)
		})
	})

	return r
}

func writeHealth(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
