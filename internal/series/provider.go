package series

import (
	"context"
	"time"
)

// HistoricalProvider abstracts the source of past observations.
type HistoricalProvider interface {
	Name() string
	FetchHistorical(ctx context.Context, ticker string) ([]Observation, error)
}

// ForecastProvider abstracts the source of predicted prices.
type ForecastProvider interface {
	Name() string
	FetchForecast(ctx context.Context, ticker string) ([]ForecastPoint, error)
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	Save(series MergedSeries)
	GetLatest(ticker string) (MergedSeries, error)
	GetRange(ticker string, from, to time.Time) ([]MergedSeries, error)
}

// Metrics receives refresh and fetch measurements.
type Metrics interface {
	RecordFetch(source, ticker string, d time.Duration, err error)
	RecordRefresh(ticker string, points int, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordFetch(string, string, time.Duration, error) {}
func (noopMetrics) RecordRefresh(string, int, error)                 {}
