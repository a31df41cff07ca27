package series

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Phase is the externally visible readiness of a ticker's series.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// ErrNoStore is returned by store-backed reads when the service has no store.
var ErrNoStore = errors.New("series store not configured")

// Status describes the last known refresh outcome for a ticker.
type Status struct {
	Ticker    string    `json:"ticker"`
	Phase     Phase     `json:"state"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	RunID     string    `json:"runId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service orchestrates the two providers, the joiner and the store.
type Service struct {
	store      Store
	historical HistoricalProvider
	forecast   ForecastProvider
	metrics    Metrics
	log        zerolog.Logger
	now        func() time.Time
	staleAfter time.Duration

	mu       sync.Mutex
	inflight map[string]*refreshCall
	status   map[string]Status
}

// refreshCall is a running refresh that concurrent callers for the same
// ticker wait on instead of starting their own join.
type refreshCall struct {
	joiner *Joiner
	done   chan struct{}
	merged MergedSeries
	err    error
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStaleAfter sets how long a stored series is served by Load before a
// fresh join is run. Zero means stored series never go stale.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) { s.staleAfter = d }
}

// NewService creates a new Service.
func NewService(store Store, historical HistoricalProvider, forecast ForecastProvider, opts ...Option) *Service {
	s := &Service{
		store:      store,
		historical: historical,
		forecast:   forecast,
		metrics:    noopMetrics{},
		log:        zerolog.Nop(),
		now:        time.Now,
		inflight:   make(map[string]*refreshCall),
		status:     make(map[string]Status),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches both sources concurrently for ticker, merges them and
// stores the result. Nothing is stored unless both fetches succeed. A caller
// arriving while a refresh for the same ticker is running shares its result.
func (s *Service) Refresh(ctx context.Context, ticker string) (MergedSeries, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return MergedSeries{}, fmt.Errorf("ticker is required")
	}
	if s.historical == nil || s.forecast == nil {
		return MergedSeries{}, fmt.Errorf("series providers not configured")
	}

	s.mu.Lock()
	if call, ok := s.inflight[ticker]; ok {
		s.mu.Unlock()
		s.log.Debug().Str("ticker", ticker).Msg("joining in-flight refresh")
		select {
		case <-call.done:
			return call.merged, call.err
		case <-ctx.Done():
			return MergedSeries{}, ctx.Err()
		}
	}

	runID := uuid.NewString()
	call := &refreshCall{joiner: s.newJoiner(ticker), done: make(chan struct{})}
	s.inflight[ticker] = call
	s.mu.Unlock()

	call.merged, call.err = s.runRefresh(ctx, ticker, runID, call.joiner)

	s.mu.Lock()
	if s.inflight[ticker] == call {
		delete(s.inflight, ticker)
	}
	s.mu.Unlock()
	close(call.done)

	return call.merged, call.err
}

func (s *Service) newJoiner(ticker string) *Joiner {
	return NewJoiner(
		func(ctx context.Context) ([]Observation, error) {
			start := time.Now()
			obs, err := s.historical.FetchHistorical(ctx, ticker)
			s.metrics.RecordFetch(s.historical.Name(), ticker, time.Since(start), err)
			return obs, err
		},
		func(ctx context.Context) ([]ForecastPoint, error) {
			start := time.Now()
			fc, err := s.forecast.FetchForecast(ctx, ticker)
			s.metrics.RecordFetch(s.forecast.Name(), ticker, time.Since(start), err)
			return fc, err
		},
	)
}

func (s *Service) runRefresh(ctx context.Context, ticker, runID string, j *Joiner) (MergedSeries, error) {
	log := s.log.With().Str("ticker", ticker).Str("run_id", runID).Logger()

	log.Debug().Msg("refreshing series")
	points, err := j.Run(ctx)
	if err != nil {
		s.setStatus(Status{Ticker: ticker, Phase: PhaseError, Stage: StateError.String(), Error: err.Error(), RunID: runID})
		s.metrics.RecordRefresh(ticker, 0, err)
		log.Error().Err(err).Msg("series refresh failed")
		return MergedSeries{}, fmt.Errorf("refresh %s: %w", ticker, err)
	}

	Annotate(points)
	merged := MergedSeries{
		ID:            runID,
		Ticker:        ticker,
		GeneratedAt:   s.now().UTC(),
		HistoricalLen: j.HistoricalLen(),
		Points:        points,
	}
	if s.store != nil {
		s.store.Save(merged)
	}

	s.setStatus(Status{Ticker: ticker, Phase: PhaseReady, Stage: StateMerged.String(), RunID: runID})
	s.metrics.RecordRefresh(ticker, len(points), nil)
	log.Info().
		Int("historical", merged.HistoricalLen).
		Int("forecast", len(points)-merged.HistoricalLen).
		Msg("series refreshed")
	return merged, nil
}

// Load returns the latest stored series for ticker, running a refresh when
// none is stored or the stored one is stale.
func (s *Service) Load(ctx context.Context, ticker string) (MergedSeries, error) {
	ticker = NormalizeTicker(ticker)
	if s.store != nil {
		if latest, err := s.store.GetLatest(ticker); err == nil {
			if s.staleAfter <= 0 || s.now().Sub(latest.GeneratedAt) < s.staleAfter {
				return latest, nil
			}
		}
	}
	return s.Refresh(ctx, ticker)
}

// Status reports whether ticker is loading, ready or failed.
func (s *Service) Status(ticker string) Status {
	ticker = NormalizeTicker(ticker)

	s.mu.Lock()
	defer s.mu.Unlock()

	if call, ok := s.inflight[ticker]; ok {
		return Status{
			Ticker:    ticker,
			Phase:     PhaseLoading,
			Stage:     call.joiner.State().String(),
			UpdatedAt: s.now().UTC(),
		}
	}
	if st, ok := s.status[ticker]; ok {
		return st
	}
	return Status{Ticker: ticker, Phase: PhaseIdle, Stage: StateEmpty.String()}
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(ticker string) (MergedSeries, error) {
	if s.store == nil {
		return MergedSeries{}, ErrNoStore
	}
	return s.store.GetLatest(NormalizeTicker(ticker))
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(ticker string, from, to time.Time) ([]MergedSeries, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetRange(NormalizeTicker(ticker), from, to)
}

func (s *Service) setStatus(st Status) {
	st.UpdatedAt = s.now().UTC()
	s.mu.Lock()
	s.status[st.Ticker] = st
	s.mu.Unlock()
}
