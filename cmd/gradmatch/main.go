package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/vincent3477/GraduateSupportApp/internal/config"
	"github.com/vincent3477/GraduateSupportApp/internal/db"
	dbBolt "github.com/vincent3477/GraduateSupportApp/internal/db/bolt"
	dbRedis "github.com/vincent3477/GraduateSupportApp/internal/db/redis"
	"github.com/vincent3477/GraduateSupportApp/internal/domain"
	logpkg "github.com/vincent3477/GraduateSupportApp/internal/logger"
	"github.com/vincent3477/GraduateSupportApp/internal/metrics"
	accountrepo "github.com/vincent3477/GraduateSupportApp/internal/repository/account"
	"github.com/vincent3477/GraduateSupportApp/internal/repository/embcache"
	profilerepo "github.com/vincent3477/GraduateSupportApp/internal/repository/profile"
	sessionrepo "github.com/vincent3477/GraduateSupportApp/internal/repository/session"
	chiTransport "github.com/vincent3477/GraduateSupportApp/internal/transport/chi"
	openaiEmb "github.com/vincent3477/GraduateSupportApp/internal/transport/openai"
	"github.com/vincent3477/GraduateSupportApp/internal/transport/toolhouse"
	authuc "github.com/vincent3477/GraduateSupportApp/internal/usecase/auth"
	matcheruc "github.com/vincent3477/GraduateSupportApp/internal/usecase/matcher"
	onboardinguc "github.com/vincent3477/GraduateSupportApp/internal/usecase/onboarding"
	recommenduc "github.com/vincent3477/GraduateSupportApp/internal/usecase/recommend"
	"github.com/vincent3477/GraduateSupportApp/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting graduate support API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "bolt":
		store, err = dbBolt.NewStore(cfg.Database.Path)
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	if err := store.EnsureIndex(ctx, profilerepo.IndexDefinition(cfg.Embedding.Dimensions)); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	// Embedder chain — composition root
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	cached := embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Repositories
	profiles := profilerepo.New(store, logger)
	sessions := sessionrepo.New()
	accounts := accountrepo.New()

	// Agent client
	agent := toolhouse.NewClient(&toolhouse.Config{
		BaseURL: cfg.Agent.BaseURL,
		AgentID: cfg.Agent.AgentID,
		Timeout: time.Duration(cfg.Agent.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	// Use case services
	onboardingSvc := onboardinguc.New(sessions, profiles, cached, cached, logger)
	matcherSvc := matcheruc.New(profiles, cfg.Matching.DefaultTopK, cfg.Matching.MaxTopK)
	authSvc := authuc.New(accounts, cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLHour)*time.Hour, logger)
	recommendSvc := recommenduc.New(agent, logger)

	checks := map[string]chiTransport.HealthChecker{
		"database": dbHealthChecker{store: store},
		"embedder": embeddingHealthChecker{embedder: cached},
	}

	server := chiTransport.NewServer(onboardingSvc, matcherSvc, authSvc, recommendSvc, checks, logger).
		WithEmbeddingInfo(cfg.Embedding.Model, cfg.Embedding.Dimensions)

	var verifier chiTransport.TokenVerifier
	if cfg.Auth.RequireAuth {
		verifier = authSvc
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chiTransport.JWTAuthMiddleware(verifier))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// dbHealthChecker adapts db.Pinger to the transport health contract.
type dbHealthChecker struct {
	store db.Pinger
}

func (h dbHealthChecker) HealthCheck(ctx context.Context) error {
	if err := h.store.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// embeddingHealthChecker probes the embedding provider when it supports health checks.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
