package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nimb-ou/peer-review-system/internal/api"
	"github.com/nimb-ou/peer-review-system/internal/cache"
	"github.com/nimb-ou/peer-review-system/internal/config"
	"github.com/nimb-ou/peer-review-system/internal/engine"
	"github.com/nimb-ou/peer-review-system/internal/metrics"
	"github.com/nimb-ou/peer-review-system/internal/registry"
	"github.com/nimb-ou/peer-review-system/internal/repo"
	"github.com/nimb-ou/peer-review-system/internal/services"
	"github.com/nimb-ou/peer-review-system/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting insight-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		cacheProvider = cache.NewMemoryProvider()
	}
	defer cacheProvider.Close()

	storeClient := repo.NewReviewStoreClient(
		cfg.Store.BaseURL,
		cfg.Store.EventsPath,
		cfg.Store.Timeout,
		cacheProvider,
		cfg.Store.CacheTTL,
	)

	modelRegistry, err := registry.Open(registry.Config{
		Path:       cfg.Registry.Path,
		InMemory:   cfg.Registry.InMemory,
		SyncWrites: cfg.Registry.SyncWrites,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to open model registry", slog.Any("error", err))
		os.Exit(1)
	}
	defer modelRegistry.Close()

	trainer := engine.NewTrainer(logger, engine.TrainerConfig{
		HoldoutDays:   cfg.Training.HoldoutDays,
		Trees:         cfg.Training.Trees,
		MaxDepth:      cfg.Training.MaxDepth,
		Clusters:      cfg.Training.Clusters,
		Contamination: cfg.Training.Contamination,
		Seed:          cfg.Training.Seed,
	})
	assembler := engine.NewAssembler(logger, storeClient, modelRegistry, cfg.Training.ModelName)

	insightService := services.NewInsightService(logger, storeClient, trainer, assembler, modelRegistry, cfg.Training.ModelName)

	router := api.NewRouter(logger, insightService)
	server, err := api.NewServer(cfg.Server, router)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("insight-engine stopped")
}
