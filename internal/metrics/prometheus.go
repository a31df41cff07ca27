package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements series.Metrics using Prometheus.
type Recorder struct {
	fetchLatency *prometheus.HistogramVec
	fetchErrors  *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	points       *prometheus.GaugeVec
}

// New creates a Prometheus recorder registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		fetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockchart_fetch_duration_seconds",
				Help:    "Duration of upstream fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		fetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockchart_fetch_errors_total",
				Help: "Total number of failed upstream fetches",
			},
			[]string{"source", "ticker"},
		),
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockchart_refreshes_total",
				Help: "Total number of series refreshes by outcome",
			},
			[]string{"ticker", "outcome"},
		),
		points: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockchart_series_points",
				Help: "Number of points in the latest merged series",
			},
			[]string{"ticker"},
		),
	}
}

// RecordFetch records latency and, on failure, an error for an upstream source.
func (r *Recorder) RecordFetch(source, ticker string, d time.Duration, err error) {
	r.fetchLatency.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		r.fetchErrors.WithLabelValues(source, ticker).Inc()
	}
}

// RecordRefresh records the outcome of a refresh.
func (r *Recorder) RecordRefresh(ticker string, points int, err error) {
	if err != nil {
		r.refreshes.WithLabelValues(ticker, "error").Inc()
		return
	}
	r.refreshes.WithLabelValues(ticker, "ok").Inc()
	r.points.WithLabelValues(ticker).Set(float64(points))
}
