package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestSMAInvalidPeriod(t *testing.T) {
	assert.Nil(t, SMA([]float64{1, 2}, 0))
}

func TestEMASeedAndSmoothing(t *testing.T) {
	out := EMA([]float64{2, 4, 6, 8}, 3)
	require.Len(t, out, 4)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	// seed = (2+4+6)/3
	assert.InDelta(t, 4.0, out[2], 1e-9)
	// k = 0.5
	assert.InDelta(t, 6.0, out[3], 1e-9)
}

func TestEMAShortInput(t *testing.T) {
	out := EMA([]float64{1, 2}, 20)
	require.Len(t, out, 2)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}

func TestEMASeedMatchesSMA(t *testing.T) {
	x := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	ema := EMA(x, 4)
	sma := SMA(x, 4)
	assert.Equal(t, sma[3], ema[3])
	assert.NotEqual(t, sma[4], ema[4])
}
