package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/api"
	"github.com/hugh/go-warden/internal/auth"
	"github.com/hugh/go-warden/internal/cleanup"
	"github.com/hugh/go-warden/internal/database"
	"github.com/hugh/go-warden/pkg/config"
	"github.com/hugh/go-warden/pkg/queue"
	"github.com/hugh/go-warden/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting go-warden server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Validate sweep schedules before anything is armed
	if err := util.ValidateCronExpr(cfg.Cleanup.DailyCron); err != nil {
		logger.Error("bad daily cleanup schedule", "error", err)
		os.Exit(1)
	}
	if err := util.ValidateCronExpr(cfg.Cleanup.WeeklyCron); err != nil {
		logger.Error("bad weekly cleanup schedule", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, mail delivery disabled", "error", err)
		redisClient = nil
	}

	// Initialize Asynq client for background mail delivery
	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())

	var verifier auth.IdentityVerifier
	if cfg.Google.ClientID != "" {
		v, err := auth.NewGoogleVerifier(cfg.Google.ClientID)
		if err != nil {
			logger.Error("failed to create google verifier", "error", err)
			os.Exit(1)
		}
		verifier = v
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set, google login disabled")
	}

	authService := auth.NewService(db, jwtService, verifier, asynqClient, logger, auth.TokenPolicy{
		RegistrationTTL: cfg.Token.RegistrationTTL(),
		VerificationTTL: cfg.Token.VerificationTTL(),
		ResetTTL:        cfg.Token.ResetTTL(),
	})

	// Cleanup scheduler owned here, not by any package-level state
	sweeper := cleanup.NewSweeper(db, logger)
	scheduler := cleanup.NewScheduler(sweeper, logger, cfg.Cleanup.DailyCron, cfg.Cleanup.WeeklyCron)
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start cleanup scheduler", "error", err)
		os.Exit(1)
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:            db,
		Redis:         redisClient,
		Logger:        logger,
		JWTService:    jwtService,
		AuthService:   authService,
		Sweeper:       sweeper,
		Scheduler:     scheduler,
		Queue:         asynqClient,
		SessionTTL:    jwtService.Expiry(),
		SecureCookies: !cfg.Server.IsDevelopment(),
		RateLimitReqs: cfg.RateLimit.Requests,
		RateLimitSecs: cfg.RateLimit.WindowSeconds,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop the cleanup scheduler
	scheduler.Stop()

	// Close Asynq client
	if asynqClient != nil {
		asynqClient.Close()
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
