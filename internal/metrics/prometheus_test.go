package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordFetch("stockreal", "JPM", 20*time.Millisecond, nil)
	r.RecordFetch("arima", "JPM", 30*time.Millisecond, errors.New("boom"))
	r.RecordRefresh("JPM", 60, nil)
	r.RecordRefresh("JPM", 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchErrors.WithLabelValues("arima", "JPM")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.fetchErrors.WithLabelValues("stockreal", "JPM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues("JPM", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues("JPM", "error")))
	assert.Equal(t, 60.0, testutil.ToFloat64(r.points.WithLabelValues("JPM")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.fetchLatency))
}
