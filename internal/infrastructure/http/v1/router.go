// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/JosipBeDa/alchemy/internal/domain/auth"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/cache/redis"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/http/v1/handlers"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/http/v1/middleware"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/storage/mongodb"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/storage/postgres"
	"github.com/JosipBeDa/alchemy/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the relational store pool (for health checks)
	Pool *postgres.Pool

	// Mongo is the document store client (for health checks)
	Mongo *mongodb.Client

	// Cache is the cache store (for health checks)
	Cache *redis.Store

	// Logger for request logging
	Logger *logger.Logger

	// TokenValidator for access token validation
	TokenValidator middleware.TokenValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Mongo, cfg.Cache)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

	// API v1
	v1 := router.Group("/api/v1")
	{
		public := v1.Group("/auth")
		{
			public.POST("/register", authHandler.Register)
			public.POST("/login", authHandler.Login)
			public.POST("/otp/verify", authHandler.VerifyOTP)
			public.POST("/verify-email", authHandler.VerifyEmail)
			public.POST("/verify-email/resend", authHandler.ResendVerification)
			public.POST("/password/forgot", authHandler.ForgotPassword)
			public.POST("/password/reset", authHandler.ResetPassword)
		}

		protected := v1.Group("/auth")
		protected.Use(middleware.Auth(cfg.TokenValidator, cfg.AuthService))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.POST("/otp/setup", authHandler.SetupOTP)
			protected.POST("/password/change", authHandler.ChangePassword)
		}
	}

	return router
}
