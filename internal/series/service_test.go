package series

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistorical struct {
	obs   []Observation
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeHistorical) Name() string { return "fake-historical" }

func (f *fakeHistorical) FetchHistorical(_ context.Context, ticker string) ([]Observation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.obs, f.err
}

type fakeForecast struct {
	fc      []ForecastPoint
	err     error
	release chan struct{}
}

func (f *fakeForecast) Name() string { return "fake-forecast" }

func (f *fakeForecast) FetchForecast(ctx context.Context, ticker string) ([]ForecastPoint, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.fc, f.err
}

type fakeStore struct {
	mu    sync.Mutex
	saved []MergedSeries
}

var errFakeNotFound = errors.New("not found")

func (s *fakeStore) Save(m MergedSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, m)
}

func (s *fakeStore) GetLatest(ticker string) (MergedSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].Ticker == ticker {
			return s.saved[i], nil
		}
	}
	return MergedSeries{}, errFakeNotFound
}

func (s *fakeStore) GetRange(ticker string, from, to time.Time) ([]MergedSeries, error) {
	return nil, errFakeNotFound
}

type recordingMetrics struct {
	mu        sync.Mutex
	fetches   map[string]int
	refreshes int
	failures  int
}

func (m *recordingMetrics) RecordFetch(source, _ string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetches == nil {
		m.fetches = make(map[string]int)
	}
	m.fetches[source]++
}

func (m *recordingMetrics) RecordRefresh(_ string, _ int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	if err != nil {
		m.failures++
	}
}

func fixedClock() time.Time {
	return time.Date(2021, 1, 30, 18, 0, 0, 0, time.UTC)
}

func TestServiceRefreshStoresMergedSeries(t *testing.T) {
	st := &fakeStore{}
	metrics := &recordingMetrics{}
	svc := NewService(st,
		&fakeHistorical{obs: sampleObservations()},
		&fakeForecast{fc: sampleForecast()},
		WithClock(fixedClock),
		WithMetrics(metrics),
	)

	m, err := svc.Refresh(context.Background(), "jpm")
	require.NoError(t, err)

	assert.Equal(t, "JPM", m.Ticker)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, fixedClock(), m.GeneratedAt)
	assert.Equal(t, 3, m.HistoricalLen)
	assert.Len(t, m.Points, 5)
	require.Len(t, st.saved, 1)

	status := svc.Status("JPM")
	assert.Equal(t, PhaseReady, status.Phase)
	assert.Equal(t, m.ID, status.RunID)

	assert.Equal(t, 1, metrics.fetches["fake-historical"])
	assert.Equal(t, 1, metrics.fetches["fake-forecast"])
	assert.Equal(t, 1, metrics.refreshes)
	assert.Zero(t, metrics.failures)
}

func TestServiceRefreshFailureSetsErrorState(t *testing.T) {
	st := &fakeStore{}
	metrics := &recordingMetrics{}
	svc := NewService(st,
		&fakeHistorical{err: errors.New("connection refused")},
		&fakeForecast{fc: sampleForecast()},
		WithMetrics(metrics),
	)

	_, err := svc.Refresh(context.Background(), "JPM")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, st.saved)

	status := svc.Status("JPM")
	assert.Equal(t, PhaseError, status.Phase)
	assert.Contains(t, status.Error, "connection refused")
	assert.Equal(t, 1, metrics.failures)
}

func TestServiceStatusLoadingWhileInFlight(t *testing.T) {
	fc := &fakeForecast{fc: sampleForecast(), release: make(chan struct{})}
	svc := NewService(&fakeStore{}, &fakeHistorical{obs: sampleObservations()}, fc)

	assert.Equal(t, PhaseIdle, svc.Status("JPM").Phase)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background(), "JPM")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return svc.Status("JPM").Phase == PhaseLoading
	}, time.Second, 5*time.Millisecond)

	close(fc.release)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseReady, svc.Status("JPM").Phase)
}

func TestServiceLoadUsesFreshCache(t *testing.T) {
	hist := &fakeHistorical{obs: sampleObservations()}
	now := fixedClock()
	svc := NewService(&fakeStore{}, hist, &fakeForecast{fc: sampleForecast()},
		WithClock(func() time.Time { return now }),
		WithStaleAfter(time.Minute),
	)

	first, err := svc.Load(context.Background(), "JPM")
	require.NoError(t, err)

	second, err := svc.Load(context.Background(), "jpm")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, hist.calls)

	now = now.Add(2 * time.Minute)
	third, err := svc.Load(context.Background(), "JPM")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, 2, hist.calls)
}

func TestServiceRefreshValidation(t *testing.T) {
	svc := NewService(&fakeStore{}, nil, nil)

	_, err := svc.Refresh(context.Background(), " ")
	assert.Error(t, err)

	_, err = svc.Refresh(context.Background(), "JPM")
	assert.Error(t, err)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServiceRefreshSharesInFlightJoin(t *testing.T) {
	hist := &fakeHistorical{obs: sampleObservations()}
	fc := &fakeForecast{fc: sampleForecast(), release: make(chan struct{})}
	st := &fakeStore{}
	logs := &lockedBuffer{}
	svc := NewService(st, hist, fc, WithLogger(zerolog.New(logs).Level(zerolog.DebugLevel)))

	type result struct {
		m   MergedSeries
		err error
	}
	first := make(chan result, 1)
	go func() {
		m, err := svc.Refresh(context.Background(), "JPM")
		first <- result{m, err}
	}()
	require.Eventually(t, func() bool {
		return svc.Status("JPM").Phase == PhaseLoading
	}, time.Second, 5*time.Millisecond)

	second := make(chan result, 1)
	go func() {
		m, err := svc.Load(context.Background(), "jpm")
		second <- result{m, err}
	}()
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "joining in-flight refresh")
	}, time.Second, 5*time.Millisecond)

	close(fc.release)
	a, b := <-first, <-second
	require.NoError(t, a.err)
	require.NoError(t, b.err)

	assert.Equal(t, a.m.ID, b.m.ID)
	assert.Equal(t, 1, hist.calls)
	assert.Len(t, st.saved, 1)
}

func TestServiceRefreshFollowerHonoursContext(t *testing.T) {
	fc := &fakeForecast{fc: sampleForecast(), release: make(chan struct{})}
	svc := NewService(&fakeStore{}, &fakeHistorical{obs: sampleObservations()}, fc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background(), "JPM")
		done <- err
	}()
	require.Eventually(t, func() bool {
		return svc.Status("JPM").Phase == PhaseLoading
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Refresh(ctx, "JPM")
	assert.ErrorIs(t, err, context.Canceled)

	close(fc.release)
	require.NoError(t, <-done)
}

func TestServiceReadsWithoutStore(t *testing.T) {
	svc := NewService(nil, &fakeHistorical{obs: sampleObservations()}, &fakeForecast{fc: sampleForecast()})

	_, err := svc.GetLatest("JPM")
	assert.ErrorIs(t, err, ErrNoStore)

	_, err = svc.GetRange("JPM", fixedClock().Add(-time.Hour), fixedClock())
	assert.ErrorIs(t, err, ErrNoStore)

	m, err := svc.Load(context.Background(), "JPM")
	require.NoError(t, err)
	assert.Len(t, m.Points, 5)
}
