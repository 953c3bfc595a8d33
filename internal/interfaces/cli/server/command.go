package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	quotaApp "github.com/replygate/replygate/internal/application/quota"
	routingApp "github.com/replygate/replygate/internal/application/routing"
	sessionApp "github.com/replygate/replygate/internal/application/session"
	tenantApp "github.com/replygate/replygate/internal/application/tenant"
	"github.com/replygate/replygate/internal/infrastructure/auth"
	"github.com/replygate/replygate/internal/infrastructure/bridge"
	"github.com/replygate/replygate/internal/infrastructure/cache"
	"github.com/replygate/replygate/internal/infrastructure/config"
	"github.com/replygate/replygate/internal/infrastructure/database"
	"github.com/replygate/replygate/internal/infrastructure/migration"
	"github.com/replygate/replygate/internal/infrastructure/ratelimit"
	"github.com/replygate/replygate/internal/infrastructure/redisclient"
	"github.com/replygate/replygate/internal/infrastructure/repository"
	httpRouter "github.com/replygate/replygate/internal/interfaces/http"
	"github.com/replygate/replygate/internal/interfaces/http/handlers"
	"github.com/replygate/replygate/internal/interfaces/http/middleware"
	"github.com/replygate/replygate/internal/shared/goroutine"
	"github.com/replygate/replygate/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server and session manager",
		Long:  `Start the replygate HTTP server, reconnect stored sessions, and begin routing inbound messages.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = mapEnvToGinMode(env)

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger().Named("server")

	log.Infow("starting replygate", "environment", env, "auto_migrate", autoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := handleMigrations(log); err != nil {
		return fmt.Errorf("migration handling failed: %w", err)
	}

	if err := redisclient.Init(&cfg.Redis); err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redisclient.Close()

	// Repositories
	db := database.Get()
	tenantRepo := repository.NewTenantRepository(db)
	quotaRepo := repository.NewQuotaEventRepository(db)
	statusRepo := repository.NewSessionStatusRepository(db)

	// Caches and redis-backed stores
	tenantCache := cache.NewTenantCache(
		time.Duration(cfg.Cache.TTLSeconds)*time.Second,
		cfg.Cache.Capacity,
		time.Duration(cfg.Cache.SweepIntervalSeconds)*time.Second,
		logger.NewLogger(),
	)
	rdb := redisclient.Get()
	optOuts := cache.NewOptOutStore(rdb)
	pairingStore := cache.NewPairingStore(rdb)
	rateLimiter := ratelimit.NewRedisRateLimiter(rdb)

	// Bridge transport and session manager
	credStore, err := bridge.NewFileCredentialStore(cfg.Session.CredentialDir)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}
	transport := bridge.NewWSTransport(&cfg.Bridge, credStore)
	sessionManager := sessionApp.NewManager(transport, credStore, statusRepo, tenantRepo, &cfg.Session)

	// Application services
	tenantService := tenantApp.NewService(tenantRepo, tenantCache)
	quotaTracker := quotaApp.NewTracker(quotaRepo, logger.NewLogger())
	pipeline := routingApp.NewPipeline(tenantService, sessionManager, quotaTracker, optOuts)
	sessionManager.SetHandler(pipeline)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	tenantCache.StartSweeper(rootCtx)
	defer tenantCache.Stop()

	goroutine.SafeGo(log, "reconnect_all", func() {
		if err := sessionManager.ReconnectAll(rootCtx); err != nil {
			log.Errorw("session reconnect sweep failed", "error", err)
		}
	})

	// HTTP surface
	jwtService := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)
	authMiddleware := middleware.NewAuthMiddleware(jwtService, logger.NewLogger())
	tenantHandler := handlers.NewTenantHandler(tenantService)
	sessionHandler := handlers.NewSessionHandler(sessionManager, tenantService, pairingStore)

	router := httpRouter.NewRouter(tenantHandler, sessionHandler, authMiddleware, rateLimiter)
	router.SetupRoutes(cfg)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	goroutine.SafeGo(log, "http_server", func() {
		log.Infow("server listening", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("http server stopped", "error", err)
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessionManager.Shutdown(ctx)

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func handleMigrations(log logger.Interface) error {
	if !autoMigrate {
		return nil
	}

	if env == "production" {
		log.Warnw("auto-migration is enabled in production, prefer migrate up")
	}

	strategy := migration.NewGormAutoMigrateStrategy()
	if err := strategy.Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
		return err
	}
	log.Infow("auto-migration completed")
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
