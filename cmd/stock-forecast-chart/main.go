package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/stock-forecast-chart/internal/api/http"
	"github.com/i474232898/stock-forecast-chart/internal/bootstrap"
	"github.com/i474232898/stock-forecast-chart/internal/config"
	"github.com/i474232898/stock-forecast-chart/internal/logging"
	"github.com/i474232898/stock-forecast-chart/internal/metrics"
	"github.com/i474232898/stock-forecast-chart/internal/scheduler"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stdout})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build logger")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	components, err := bootstrap.Build(cfg, logger, recorder)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire service")
	}

	// Scheduler that periodically refreshes the merged series.
	sched := scheduler.New(cfg.Tickers, cfg.FetchInterval, 30*time.Second, components.Service, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := httpapi.NewApp(registry)
	httpapi.RegisterRoutes(app, components.Service, 30*time.Second, logger)

	go func() {
		logger.Info().Str("port", cfg.Port).Strs("tickers", cfg.Tickers).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
}
