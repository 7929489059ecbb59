package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/youthhire/safety-engine/pkg/audit"
	"github.com/youthhire/safety-engine/pkg/config"
	"github.com/youthhire/safety-engine/pkg/database"
	"github.com/youthhire/safety-engine/pkg/handlers"
	"github.com/youthhire/safety-engine/pkg/intents"
	"github.com/youthhire/safety-engine/pkg/leakcheck"
	"github.com/youthhire/safety-engine/pkg/logging"
	"github.com/youthhire/safety-engine/pkg/middleware"
	"github.com/youthhire/safety-engine/pkg/repositories"
	"github.com/youthhire/safety-engine/pkg/retry"
	"github.com/youthhire/safety-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("redis", cfg.Redis.Enabled()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres and Redis may still be starting when we boot under compose.
	err = retry.DoIfRetryable(ctx, retry.StartupConfig(), func() error {
		return database.MigrateUp(cfg.Database.ConnectionString(), cfg.Safety.MigrationsPath, logger)
	})
	if err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}

	db, err := retry.DoWithResult(ctx, retry.StartupConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	rdb, err := retry.DoWithResult(ctx, retry.StartupConfig(), func() (*redis.Client, error) {
		return database.NewRedisClient(ctx, &cfg.Redis)
	})
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("error", logging.SanitizeError(err)))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	catalog, err := loadCatalog(cfg.Safety.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to load intent catalog", zap.Error(err))
	}
	logger.Info("Intent catalog loaded", zap.Int("intents", catalog.Len()))

	// Repositories
	agePolicyRepo := repositories.NewAgePolicyRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Services
	auditor := audit.NewSafetyAuditor(logger)
	auditService := services.NewAuditService(auditRepo, logger)
	policyCache := services.NewPolicyCache(agePolicyRepo, rdb, logger)
	agePolicyService := services.NewAgePolicyService(agePolicyRepo, policyCache, auditService, auditor, logger)
	eligibilityService := services.NewEligibilityService(policyCache)
	renderer := intents.NewRenderer(catalog, leakcheck.NewDefaultDetector())
	messagingService := services.NewMessagingService(renderer, eligibilityService, messageRepo, auditService, auditor, logger)
	legacyService := services.NewLegacyService(messageRepo, auditService, auditor, logger)

	active, err := agePolicyService.Bootstrap(ctx, cfg.Safety.SeedPolicy())
	if err != nil {
		logger.Fatal("Failed to bootstrap age policy", zap.Error(err))
	}
	logger.Info("Age policy active", zap.Int("version", active.Version))

	go policyCache.Listen(ctx)
	policyCache.RunResync(ctx, cfg.Safety.PolicyResyncInterval)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, policyCache, logger).RegisterRoutes(mux)
	handlers.NewIntentsHandler(catalog, messagingService, logger).RegisterRoutes(mux)
	handlers.NewMessagesHandler(messagingService, logger).RegisterRoutes(mux)
	handlers.NewAgePolicyHandler(agePolicyService, eligibilityService, logger).RegisterRoutes(mux)
	handlers.NewAdminHandler(legacyService, auditService, logger).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestIdentity(middleware.RequestLogger(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logger.Info("Starting safety-engine", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logConfig := zap.NewProductionConfig()
	if !cfg.IsProduction() {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}

func loadCatalog(path string) (*intents.Catalog, error) {
	if path == "" {
		return intents.DefaultCatalog()
	}
	return intents.LoadCatalogFile(path)
}
