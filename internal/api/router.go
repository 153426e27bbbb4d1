package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/hugh/go-warden/internal/api/handlers"
	"github.com/hugh/go-warden/internal/api/middleware"
	"github.com/hugh/go-warden/internal/auth"
	"github.com/hugh/go-warden/internal/cleanup"
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Sweeper        *cleanup.Sweeper
	Scheduler      *cleanup.Scheduler
	Queue          *asynq.Client // nil disables async admin sweeps
	SessionTTL     time.Duration
	SecureCookies  bool     // Secure flag on session cookies, off in development
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or allow localhost in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.SessionTTL, cfg.SecureCookies)
	adminHandler := handlers.NewAdminHandler(cfg.AuthService, cfg.Sweeper, cfg.Scheduler, cfg.Queue)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/start-register", authHandler.StartRegister)
		r.Post("/auth/complete-register/{token}", authHandler.CompleteRegister)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/google", authHandler.GoogleLogin)
		r.Post("/auth/verify-email/{token}", authHandler.VerifyEmail)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Put("/auth/reset-password/{token}", authHandler.ResetPassword)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/logout", authHandler.Logout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/me", authHandler.UpdateMe)

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSuperadmin))

				r.Route("/admin", func(r chi.Router) {
					r.Get("/accounts", adminHandler.ListAccounts)
					r.Get("/accounts/{id}", adminHandler.GetAccount)
					r.Put("/accounts/{id}", adminHandler.UpdateAccount)
					r.Delete("/accounts/{id}", adminHandler.DeleteAccount)

					r.Post("/cleanup", adminHandler.TriggerCleanup)
					r.Get("/scheduler", adminHandler.SchedulerStatus)
					r.Post("/scheduler/stop", adminHandler.SchedulerStop)
					r.Post("/scheduler/restart", adminHandler.SchedulerRestart)
				})
			})
		})
	})

	return &Router{r}
}
