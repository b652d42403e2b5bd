package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/pipeline-api/docs"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/database"
	"github.com/straye-as/pipeline-api/internal/datawarehouse"
	"github.com/straye-as/pipeline-api/internal/events"
	"github.com/straye-as/pipeline-api/internal/http/handler"
	"github.com/straye-as/pipeline-api/internal/http/middleware"
	"github.com/straye-as/pipeline-api/internal/http/router"
	"github.com/straye-as/pipeline-api/internal/jobs"
	"github.com/straye-as/pipeline-api/internal/logger"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/storage"
	"go.uber.org/zap"
)

// @title Pipeline API
// @version 1.0
// @description Sales pipeline, deal and mortgage commission API

// @contact.name API Support
// @contact.email support@straye.io

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations, sent with X-Organization-ID
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	}

	// In development secrets come from the environment, in staging/production from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m := metrics.New(cfg.Metrics.Namespace)

	// Snapshot storage is optional; financial snapshots answer 503 without it
	var snapshotStore storage.Storage
	if cfg.Storage.Mode != "" && cfg.Storage.Mode != "none" {
		snapshotStore, err = storage.NewStorage(&cfg.Storage, log)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))
	}

	publisher, err := events.New(&cfg.Kafka, log)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("Error closing event publisher", zap.Error(err))
		}
	}()

	engineOpts := []pipeline.EngineOption{
		pipeline.WithDefaultIndustry(cfg.Pipeline.DefaultIndustry),
		pipeline.WithLocalTTL(cfg.Pipeline.StageCacheTTLDuration()),
		pipeline.WithFailureRecorder(func(source pipeline.StageSource) {
			m.RecordStageLoadFailure(string(source))
		}),
	}
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			// The local cache still serves; only cross-instance sharing is lost
			log.Warn("Redis connection failed, continuing without shared stage cache", zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			engineOpts = append(engineOpts, pipeline.WithSharedCache(
				cache.NewStageCache(redisClient, cfg.Redis.KeyPrefix, cfg.Redis.StageTTLDuration()),
			))
			log.Info("Shared stage cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// The loan warehouse is optional and read-only
	var dwClient *datawarehouse.Client
	if cfg.DataWarehouse.Enabled {
		dwClient, err = datawarehouse.NewClient(&cfg.DataWarehouse, log)
		if err != nil {
			log.Warn("Data warehouse connection failed, continuing without it", zap.Error(err))
			dwClient = nil
		} else if dwClient != nil {
			log.Info("Data warehouse connected successfully",
				zap.Int("max_open_conns", cfg.DataWarehouse.MaxOpenConns),
				zap.Int("query_timeout_seconds", cfg.DataWarehouse.QueryTimeout),
			)
		}
	} else {
		log.Info("Data warehouse not configured, skipping")
	}

	// Initialize repositories
	organizationRepo := repository.NewOrganizationRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	dealRepo := repository.NewDealRepository(db)
	dealStageHistoryRepo := repository.NewDealStageHistoryRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	opportunityRepo := repository.NewOpportunityRepository(db)

	// Initialize services
	engine := pipeline.NewEngine(repository.NewStageRepository(db), log, engineOpts...)
	stageService := service.NewStageService(engine, publisher, m, log)
	dealService := service.NewDealService(db, dealRepo, dealStageHistoryRepo, customerRepo, quoteRepo, stageService, publisher, m, log)
	pipelineService := service.NewPipelineService(stageService, dealRepo, quoteRepo, invoiceRepo, customerRepo, m, &cfg.Pipeline, log)
	financialService := service.NewFinancialService(opportunityRepo, snapshotStore, &cfg.Commission, log)
	var loans service.LoanSource
	if dwClient != nil {
		loans = dwClient
	}
	opportunityService := service.NewOpportunityService(opportunityRepo, loans, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	stageHandler := handler.NewStageHandler(stageService, log)
	pipelineHandler := handler.NewPipelineHandler(pipelineService, dealService, log)
	dealHandler := handler.NewDealHandler(dealService, log)
	financialHandler := handler.NewFinancialHandler(financialService, opportunityService, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		m,
		authMiddleware,
		rateLimiter,
		stageHandler,
		pipelineHandler,
		dealHandler,
		financialHandler,
	)
	if dwClient != nil {
		rt.AddReadinessCheck("data_warehouse", func(r *http.Request) error {
			status := dwClient.HealthCheck(r.Context())
			if status.Status != "healthy" {
				return fmt.Errorf("data warehouse %s: %s", status.Status, status.Error)
			}
			return nil
		})
	}

	scheduler := jobs.NewScheduler(log, m)
	registered := 0
	if cfg.Jobs.OpportunitySync.Enabled && dwClient != nil {
		job := jobs.NewOpportunitySyncJob(opportunityService, organizationRepo, log)
		if err := scheduler.AddJob(job, cfg.Jobs.OpportunitySync.Schedule, cfg.Jobs.OpportunitySync.TimeoutDuration()); err != nil {
			log.Error("Failed to register opportunity sync job", zap.Error(err))
		} else {
			registered++
		}
	}
	if cfg.Jobs.SummarySnapshot.Enabled && snapshotStore != nil {
		job := jobs.NewSummarySnapshotJob(financialService, organizationRepo, log)
		if err := scheduler.AddJob(job, cfg.Jobs.SummarySnapshot.Schedule, cfg.Jobs.SummarySnapshot.TimeoutDuration()); err != nil {
			log.Error("Failed to register summary snapshot job", zap.Error(err))
		} else {
			registered++
		}
	}
	if registered > 0 {
		scheduler.Start()
		log.Info("Scheduler started", zap.Strings("jobs", scheduler.GetJobNames()))
	} else {
		log.Info("No background jobs enabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if registered > 0 {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if dwClient != nil {
			if err := dwClient.Close(); err != nil {
				log.Warn("Error closing data warehouse connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
