package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/app"
	"github.com/kailas-cloud/arxivsearch/internal/config"
	logpkg "github.com/kailas-cloud/arxivsearch/internal/logger"
	"github.com/kailas-cloud/arxivsearch/internal/metrics"
	chiTransport "github.com/kailas-cloud/arxivsearch/internal/transport/chi"
	"github.com/kailas-cloud/arxivsearch/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

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

	logger.Info("Starting arxivsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_backend", cfg.Index.Backend),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	ctx := context.Background()

	specs, err := app.ProviderSpecs(cfg.Providers)
	if err != nil {
		logger.Fatal("Invalid provider configuration", zap.Error(err))
	}

	idx, err := app.OpenIndex(ctx, cfg.Index, specs, logger)
	if err != nil {
		logger.Fatal("Index not ready", zap.Error(err))
	}
	defer idx.Close()

	services, err := app.NewServices(ctx, &cfg, idx, specs, logger)
	if err != nil {
		logger.Fatal("Failed to wire services", zap.Error(err))
	}

	server := chiTransport.NewServer(services.Search, services.Registry, services.Health, chiTransport.Limits{
		DefaultK:     cfg.Search.DefaultK,
		MaxK:         cfg.Search.MaxK,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: server.Handler(chiTransport.RouterConfig{
			APIKeys:            cfg.Auth.APIKeys,
			CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		}),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
