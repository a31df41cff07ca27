package series

import (
	"math"

	"github.com/i474232898/stock-forecast-chart/internal/indicators"
)

// EMA windows applied to merged series.
const (
	EMAFast = 20
	EMASlow = 50
)

// Annotate sets EMA20/EMA50 on observation points. Forecast points have no
// close and are left untouched.
func Annotate(points []Point) {
	var (
		idx    []int
		closes []float64
	)
	for i, p := range points {
		if p.Close == nil {
			continue
		}
		idx = append(idx, i)
		closes = append(closes, *p.Close)
	}

	fast := indicators.EMA(closes, EMAFast)
	slow := indicators.EMA(closes, EMASlow)
	for n, i := range idx {
		points[i].EMA20 = finite(fast[n])
		points[i].EMA50 = finite(slow[n])
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
