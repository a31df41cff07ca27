package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/stock-forecast-chart/internal/series"
)

// ErrNotFound is returned when no series matches the lookup.
var ErrNotFound = errors.New("no series for ticker")

// MemoryStore keeps the recent merged series of each ticker, oldest first.
type MemoryStore struct {
	mu     sync.RWMutex
	byTick map[string][]series.MergedSeries

	maxHistory int           // 0 = unlimited
	maxAge     time.Duration // 0 = unlimited
	now        func() time.Time
}

// NewMemoryStore creates a MemoryStore. Non-positive limits disable the
// corresponding retention rule.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		byTick:     make(map[string][]series.MergedSeries),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save records m as the newest series for m.Ticker.
func (s *MemoryStore) Save(m series.MergedSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byTick[m.Ticker] = s.prune(append(s.byTick[m.Ticker], m))
}

// prune applies count and age retention. The newest series always survives
// so a ticker that stopped refreshing still serves its last chart.
func (s *MemoryStore) prune(list []series.MergedSeries) []series.MergedSeries {
	if s.maxHistory > 0 && len(list) > s.maxHistory {
		list = list[len(list)-s.maxHistory:]
	}
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		keep := sort.Search(len(list)-1, func(i int) bool {
			return !list[i].GeneratedAt.Before(cutoff)
		})
		list = list[keep:]
	}
	return list
}

// GetLatest returns the newest series for ticker.
func (s *MemoryStore) GetLatest(ticker string) (series.MergedSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byTick[ticker]
	if len(list) == 0 {
		return series.MergedSeries{}, ErrNotFound
	}
	return list[len(list)-1], nil
}

// GetRange returns the series for ticker generated within [from, to].
func (s *MemoryStore) GetRange(ticker string, from, to time.Time) ([]series.MergedSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []series.MergedSeries
	for _, m := range s.byTick[ticker] {
		if m.GeneratedAt.Before(from) || m.GeneratedAt.After(to) {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Tickers lists every ticker with at least one stored series.
func (s *MemoryStore) Tickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.byTick))
	for k, list := range s.byTick {
		if len(list) > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
