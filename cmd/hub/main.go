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
	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/config"
	"github.com/kspirits/hub/internal/domain"
	"github.com/kspirits/hub/internal/enrichment"
	"github.com/kspirits/hub/internal/events"
	"github.com/kspirits/hub/internal/firestore"
	"github.com/kspirits/hub/internal/kv"
	logpkg "github.com/kspirits/hub/internal/logger"
	"github.com/kspirits/hub/internal/metrics"
	arrivalsrepo "github.com/kspirits/hub/internal/repository/arrivals"
	catalogrepo "github.com/kspirits/hub/internal/repository/catalog"
	reviewsrepo "github.com/kspirits/hub/internal/repository/reviews"
	trendingrepo "github.com/kspirits/hub/internal/repository/trending"
	chiTransport "github.com/kspirits/hub/internal/transport/chi"
	aggregateuc "github.com/kspirits/hub/internal/usecase/aggregate"
	arrivalsuc "github.com/kspirits/hub/internal/usecase/arrivals"
	cataloguc "github.com/kspirits/hub/internal/usecase/catalog"
	enrichuc "github.com/kspirits/hub/internal/usecase/enrich"
	feeduc "github.com/kspirits/hub/internal/usecase/feed"
	trendinguc "github.com/kspirits/hub/internal/usecase/trending"
	"github.com/kspirits/hub/internal/version"
)

const eventBuffer = 64

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

	logger.Info("Starting spirits hub API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("project_id", cfg.Firestore.ProjectID),
	)

	// Register store metrics explicitly (no init())
	metrics.RegisterStoreMetrics()

	// Credential minter fails fast on bad key material
	tokens, err := firestore.NewTokenSource(firestore.Credentials{
		ClientEmail: cfg.Firestore.ClientEmail,
		PrivateKey:  cfg.Firestore.PrivateKey,
		TokenURL:    cfg.Firestore.TokenURL,
		Scopes:      cfg.Firestore.Scopes,
	}, nil)
	if err != nil {
		logger.Fatal("Failed to create token source", zap.Error(err))
	}

	store := firestore.NewClient(firestore.Config{
		ProjectID: cfg.Firestore.ProjectID,
		Tokens:    tokens,
		Timeout:   time.Duration(cfg.Firestore.TimeoutSec) * time.Second,
		Logger:    logger,
	})

	// Optional Redis/Valkey cache for the enrichment layer
	var cache *kv.Store
	if len(cfg.Cache.Addrs) > 0 {
		cache, err = kv.NewStore(kv.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cache.Close()

		ctx := context.Background()
		if err := cache.WaitForReady(ctx, 10*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache")
	}

	// Create repositories (domain-native, no adapters)
	paths := domain.NewPaths(cfg.Firestore.AppID)
	catRepo := catalogrepo.New(store, paths, cfg.Feeds.MaxScanDocs, logger)
	revRepo := reviewsrepo.New(store, paths, logger)
	trendRepo := trendingrepo.New(store, paths)
	arrRepo := arrivalsrepo.New(store, paths, cfg.Feeds.ArrivalsSize, logger)

	// Write events feed the aggregation manager asynchronously
	dispatcher := events.NewDispatcher(eventBuffer, logger)

	// Create use case services
	catSvc := cataloguc.New(catRepo, dispatcher, logger).
		WithPagination(cfg.Feeds.DefaultPageSize, cfg.Feeds.MaxPageSize)
	trendSvc := trendinguc.New(trendRepo, catRepo, logger)
	feedSvc := feeduc.New(revRepo, catRepo, dispatcher,
		cfg.Feeds.RecentCapacity, cfg.Feeds.RecentDisplay, logger)
	arrSvc := arrivalsuc.New(arrRepo, catRepo)

	// Enrichment chain: provider -> cache decorator
	var provider enrichuc.Provider
	if cfg.Enrichment.APIKey != "" {
		base := enrichment.NewService(enrichment.Config{
			APIKey:  cfg.Enrichment.APIKey,
			BaseURL: cfg.Enrichment.BaseURL,
			Model:   cfg.Enrichment.Model,
			Logger:  logger,
		})
		provider = base
		if cache != nil {
			ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
			if ttl <= 0 {
				ttl = 30 * 24 * time.Hour
			}
			provider = enrichment.NewCachedEnricher(base, cache, ttl, logger)
		}
	} else {
		logger.Warn("Enrichment disabled: no API key configured")
	}
	enrichSvc := enrichuc.New(catSvc, provider, logger)

	// Aggregation manager consumes write events
	manager := aggregateuc.NewManager(arrSvc, feedSvc, logger)
	dispatcher.Start(context.Background(), manager)
	defer dispatcher.Close()

	// Create chi server
	var pinger chiTransport.Pinger
	if cache != nil {
		pinger = cache
	}
	server := chiTransport.NewServer(catSvc, trendSvc, feedSvc, arrSvc, enrichSvc, pinger, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

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
