// Package main is the entry point for the alchemy auth server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JosipBeDa/alchemy/internal/core/atomic"
	"github.com/JosipBeDa/alchemy/internal/domain/auth"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/cache/redis"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/email"
	v1 "github.com/JosipBeDa/alchemy/internal/infrastructure/http/v1"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/storage/mongodb"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/storage/postgres"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/storage/postgres/auth_repo"
	"github.com/JosipBeDa/alchemy/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting alchemy server")

	// --- Relational store ---
	pgConfig := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("PG_MAX_CONNS", 0); maxConns > 0 {
		pgConfig.MaxConns = int32(maxConns)
	}
	if acquireTimeout := getEnvDuration("PG_ACQUIRE_TIMEOUT", 0); acquireTimeout > 0 {
		pgConfig.AcquireTimeout = acquireTimeout
	}

	pool, err := postgres.NewPool(ctx, pgConfig)
	if err != nil {
		log.Fatalw("failed to connect to postgres", "error", err)
	}
	defer pool.Close()
	log.Info("postgres connection established")

	// --- Document store ---
	mongoConfig := mongodb.DefaultConfig(
		mustEnv("MONGO_URL"),
		getEnv("MONGO_DATABASE", "alchemy"),
	)
	mongoConfig.Username = getEnv("MONGO_USER", "")
	mongoConfig.Password = getEnv("MONGO_PASSWORD", "")

	mongoClient, err := mongodb.NewClient(ctx, mongoConfig)
	if err != nil {
		log.Fatalw("failed to connect to mongo", "error", err)
	}
	defer func() { _ = mongoClient.Close(context.Background()) }()
	log.Info("mongo connection established")

	// --- Cache ---
	redisConfig := redis.DefaultConfig(getEnv("REDIS_URL", "localhost:6379"))
	redisConfig.Password = getEnv("REDIS_PASSWORD", "")

	store, err := redis.New(ctx, redisConfig)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	defer func() { _ = store.Close() }()
	log.Info("redis connection established")

	// --- Drivers and atomic scope ---
	// Participant order is the commit order; all scopes share it.
	pgDriver := postgres.NewDriver(pool)
	mongoDriver := mongodb.NewDriver(mongoClient)

	scope := atomic.NewScope(
		postgres.NewTxBeginner(pgDriver, postgres.DefaultTxOptions()),
		mongodb.NewTxBeginner(mongoClient),
	)

	// --- JWT Service ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	// --- Auth cache ---
	authCache, err := auth.NewCache(store, auth.DefaultCacheConfig())
	if err != nil {
		log.Fatalw("failed to initialize auth cache", "error", err)
	}

	// --- Auth Service ---
	authConfig := auth.DefaultServiceConfig()
	authConfig.MaxLoginAttempts = getEnvInt("MAX_LOGIN_ATTEMPTS", authConfig.MaxLoginAttempts)
	authConfig.MaxOTPAttempts = getEnvInt("MAX_OTP_ATTEMPTS", authConfig.MaxOTPAttempts)

	authService, err := auth.NewBuilder().
		WithUsers(mongodb.NewUserRepo(mongoDriver)).
		WithSessions(auth_repo.NewSessionRepo(pool)).
		WithOAuth(auth_repo.NewOAuthRepo(pool)).
		WithCache(authCache).
		WithScope(scope).
		WithJWT(jwtService).
		WithEmail(email.NewLogSender()).
		WithConfig(authConfig).
		Build()
	if err != nil {
		log.Fatalw("failed to assemble auth service", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Mongo:          mongoClient,
		Cache:          store,
		Logger:         log,
		TokenValidator: jwtService,
		AuthService:    authService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
