package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/application/services"
	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/domain/repositories"
	"github.com/bimakw/tokendata/internal/infrastructure/cache"
	"github.com/bimakw/tokendata/internal/infrastructure/database"
	"github.com/bimakw/tokendata/internal/logger"
	"github.com/bimakw/tokendata/internal/presentation/handlers"
	"github.com/bimakw/tokendata/internal/presentation/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting tokendata API",
		zap.Int("port", cfg.API.Port),
		zap.String("root", cfg.Output.Root),
		zap.Int64s("chains", cfg.Output.ChainIDs),
	)

	// Database is optional; it backs lookups of addresses missing from the tables
	var (
		tokenRepo repositories.TokenRepository
		dbChecker handlers.HealthChecker
	)
	db, err := database.NewPostgresDB(cfg.Database, log)
	if err != nil {
		log.Warn("Failed to connect to database, serving tables only", zap.Error(err))
	} else {
		defer db.Close()
		tokenRepo = database.NewTokenRepo(db.DB())
		dbChecker = db
	}

	// Redis is only health-checked here; the fetch command fills it
	var cacheChecker handlers.HealthChecker
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis, log)
		if err != nil {
			log.Warn("Failed to connect to Redis", zap.Error(err))
		} else {
			defer redisCache.Close()
			cacheChecker = redisCache
		}
	}

	tokenService, err := services.LoadTokenService(context.Background(), cfg.Output.Root, cfg.Output.ChainIDs, tokenRepo, log)
	if err != nil {
		log.Fatal("Failed to load token tables", zap.Error(err))
	}

	// Create handlers
	tokenHandler := handlers.NewTokenHandler(tokenService, log)
	healthHandler := handlers.NewHealthHandler(len(tokenService.Chains().Data), dbChecker, cacheChecker)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewHTTPMetrics(registry)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics(httpMetrics))
	r.Use(chimiddleware.Recoverer)

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))
		tokenHandler.RegisterRoutes(r)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		log.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Received shutdown signal, shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped")
}
