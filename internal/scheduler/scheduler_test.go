package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/stock-forecast-chart/internal/series"
)

type recordingRefresher struct {
	mu      sync.Mutex
	tickers []string
}

func (r *recordingRefresher) Refresh(ctx context.Context, ticker string) (series.MergedSeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickers = append(r.tickers, ticker)
	if ticker == "FAIL" {
		return series.MergedSeries{}, errors.New("upstream down")
	}
	return series.MergedSeries{Ticker: ticker}, nil
}

func (r *recordingRefresher) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.tickers...)
	sort.Strings(out)
	return out
}

func TestRunOnceRefreshesAllTickers(t *testing.T) {
	r := &recordingRefresher{}
	s := New([]string{"JPM", "FAIL", "MSFT"}, time.Minute, time.Second, r, zerolog.Nop())

	s.RunOnce()

	assert.Equal(t, []string{"FAIL", "JPM", "MSFT"}, r.seen())
}

func TestStartRunsImmediately(t *testing.T) {
	r := &recordingRefresher{}
	s := New([]string{"JPM"}, time.Hour, time.Second, r, zerolog.Nop())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return len(r.seen()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartWithoutTickers(t *testing.T) {
	r := &recordingRefresher{}
	s := New(nil, time.Minute, time.Second, r, zerolog.Nop())

	require.NoError(t, s.Start())
	s.Stop()
	assert.Empty(t, r.seen())
}
