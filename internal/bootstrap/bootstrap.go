package bootstrap

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/stock-forecast-chart/internal/config"
	"github.com/i474232898/stock-forecast-chart/internal/series"
	"github.com/i474232898/stock-forecast-chart/internal/series/providers"
	"github.com/i474232898/stock-forecast-chart/internal/store"
)

// Components are the pieces shared by the server and the CLI.
type Components struct {
	Store      *store.MemoryStore
	Historical *providers.StockRealProvider
	Forecast   *providers.ArimaProvider
	Service    *series.Service
}

// Build wires providers, store and service from cfg.
func Build(cfg *config.AppConfig, log zerolog.Logger, metrics series.Metrics) (*Components, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	backoff := providers.BackoffConfig{
		MaxRetries:      cfg.FetchMaxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	historical := providers.NewStockRealProvider(providers.StockRealConfig{
		BaseURL: cfg.HistoricalBaseURL,
		Days:    cfg.HistoryDays,
		Limit:   cfg.HistoryLimit,
		Client:  httpClient,
		Backoff: backoff,
	})

	forecast := providers.NewArimaProvider(providers.ArimaConfig{
		BaseURL:    cfg.ForecastBaseURL,
		DateOffset: cfg.ForecastDateOffset,
		ValueField: cfg.ForecastValueField,
		Location:   loc,
		Client:     httpClient,
		Backoff:    backoff,
	})

	svc := series.NewService(memStore, historical, forecast,
		series.WithLogger(log),
		series.WithMetrics(metrics),
		series.WithStaleAfter(cfg.FetchInterval),
	)

	return &Components{
		Store:      memStore,
		Historical: historical,
		Forecast:   forecast,
		Service:    svc,
	}, nil
}
