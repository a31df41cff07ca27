package store

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/stock-forecast-chart/internal/series"
)

func mergedAt(ticker, id string, at time.Time) series.MergedSeries {
	return series.MergedSeries{ID: id, Ticker: ticker, GeneratedAt: at}
}

func TestMemoryStoreLatest(t *testing.T) {
	s := NewMemoryStore(10, 0)

	_, err := s.GetLatest("JPM")
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2021, 1, 30, 12, 0, 0, 0, time.UTC)
	s.Save(mergedAt("JPM", "a", base))
	s.Save(mergedAt("JPM", "b", base.Add(time.Minute)))

	got, err := s.GetLatest("JPM")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Date(2021, 1, 30, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		s.Save(mergedAt("JPM", id, base.Add(time.Duration(i)*time.Minute)))
	}

	all, err := s.GetRange("JPM", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "c", all[1].ID)
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2021, 1, 30, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.Save(mergedAt("JPM", "old", now.Add(-3*time.Hour)))
	s.Save(mergedAt("JPM", "new", now.Add(-time.Minute)))

	all, err := s.GetRange("JPM", now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].ID)
}

func TestMemoryStoreAgeKeepsNewest(t *testing.T) {
	now := time.Date(2021, 1, 30, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.Save(mergedAt("JPM", "stale", now.Add(-5*time.Hour)))

	got, err := s.GetLatest("JPM")
	require.NoError(t, err)
	assert.Equal(t, "stale", got.ID)
}

func TestMemoryStoreRangeMiss(t *testing.T) {
	s := NewMemoryStore(0, 0)
	at := time.Date(2021, 1, 30, 12, 0, 0, 0, time.UTC)
	s.Save(mergedAt("JPM", "a", at))

	_, err := s.GetRange("JPM", at.Add(time.Hour), at.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetRange("MSFT", at, at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTickers(t *testing.T) {
	s := NewMemoryStore(0, 0)
	at := time.Date(2021, 1, 30, 12, 0, 0, 0, time.UTC)
	s.Save(mergedAt("JPM", "a", at))
	s.Save(mergedAt("MSFT", "b", at))

	got := s.Tickers()
	sort.Strings(got)
	assert.Equal(t, []string{"JPM", "MSFT"}, got)
}
