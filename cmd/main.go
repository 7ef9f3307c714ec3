package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"propagentic/inviteservice/internal/config"
	"propagentic/inviteservice/internal/handler"
	"propagentic/inviteservice/internal/model"
	"propagentic/inviteservice/internal/repository"
	"propagentic/inviteservice/internal/service"
	jwtpkg "propagentic/inviteservice/pkg/jwt"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	var logger *zap.Logger
	if cfg.Log.Format == "json" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	policy := repository.CodePolicy{
		Length:      cfg.Invite.CodeLength,
		MaxAttempts: cfg.Invite.MaxGenerateAttempts,
	}

	// 3. Assemble the persistence tiers in priority order: remote managed
	// function, then Postgres, then the process-local fallback. The local
	// tier is always present so the service degrades instead of failing.
	var tieredOpts []repository.TieredOption
	if cfg.Invite.LegacyRedeemFallback {
		tieredOpts = append(tieredOpts, repository.WithLegacyRedeemFallback())
	}
	tiers := repository.NewTieredInviteRepository(logger, tieredOpts...)

	if cfg.Remote.Enabled {
		tiers.AddTier(repository.TierRemote, repository.NewRemoteInviteRepository(cfg.Remote.BaseURL, cfg.Remote.Timeout))
		logger.Info("remote function tier enabled", zap.String("base_url", cfg.Remote.BaseURL))
	}

	var (
		userRepo     repository.UserRepository
		propertyRepo repository.PropertyRepository
	)
	if cfg.Database.Postgres.Enabled {
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				logger.Fatal("failed to auto-migrate", zap.Error(err))
			}
			logger.Info("database migration completed")
		}
		tiers.AddTier(repository.TierDatabase, repository.NewPGInviteRepository(db, policy))
		userRepo = repository.NewPGUserRepository(db)
		propertyRepo = repository.NewPGPropertyRepository(db)
	}

	tiers.AddTier(repository.TierLocal, repository.NewMemoryInviteRepository(policy))

	if userRepo == nil {
		logger.Fatal("postgres must be enabled: user accounts have no in-memory fallback")
	}

	// 4. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 5. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.SigningKey,
		cfg.JWT.Issuer,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)

	// 6. Initialize services
	authService := service.NewAuthService(userRepo, stateStore, jwtManager, cfg.Auth)
	inviteService := service.NewInviteService(tiers, propertyRepo, cfg.Invite, logger)

	if cfg.Invite.TestCodeEnabled {
		logger.Warn("development test code is enabled; do not run this in production",
			zap.String("test_property_id", cfg.Invite.TestPropertyID))
	}

	// 7. Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	inviteHandler := handler.NewInviteHandler(inviteService)
	propertyHandler := handler.NewPropertyHandler(propertyRepo)

	// 8. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager, authHandler, inviteHandler, propertyHandler)

	// 9. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 10. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
