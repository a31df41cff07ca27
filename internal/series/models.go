package series

import (
	"strings"
	"time"
)

// Observation is a single trading day's OHLCV record.
type Observation struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	AdjClose *float64
}

// ForecastPoint is a single predicted price with a locally derived date.
type ForecastPoint struct {
	Date  time.Time
	Pred  float64
	Upper *float64
	Lower *float64
}

// Point is one element of the merged timeline. Observation fields are set for
// historical points and Pred (plus optional bounds) for forecast points.
type Point struct {
	Date time.Time `json:"date"`

	Open     *float64 `json:"open,omitempty"`
	High     *float64 `json:"high,omitempty"`
	Low      *float64 `json:"low,omitempty"`
	Close    *float64 `json:"close,omitempty"`
	Volume   *int64   `json:"volume,omitempty"`
	AdjClose *float64 `json:"adjClose,omitempty"`

	Pred  *float64 `json:"pred,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
	Lower *float64 `json:"lower,omitempty"`

	EMA20 *float64 `json:"ema20,omitempty"`
	EMA50 *float64 `json:"ema50,omitempty"`
}

// IsForecast reports whether the point came from the forecast source.
func (p Point) IsForecast() bool {
	return p.Pred != nil
}

// Point converts the observation into a timeline point.
func (o Observation) Point() Point {
	open, high, low, cls, vol := o.Open, o.High, o.Low, o.Close, o.Volume
	p := Point{
		Date:   o.Date,
		Open:   &open,
		High:   &high,
		Low:    &low,
		Close:  &cls,
		Volume: &vol,
	}
	if o.AdjClose != nil {
		adj := *o.AdjClose
		p.AdjClose = &adj
	}
	return p
}

// Point converts the forecast record into a timeline point.
func (f ForecastPoint) Point() Point {
	pred := f.Pred
	p := Point{Date: f.Date, Pred: &pred}
	if f.Upper != nil {
		v := *f.Upper
		p.Upper = &v
	}
	if f.Lower != nil {
		v := *f.Lower
		p.Lower = &v
	}
	return p
}

// MergedSeries is the chartable timeline for one ticker: historical points
// followed by forecast points.
type MergedSeries struct {
	ID            string    `json:"id"`
	Ticker        string    `json:"ticker"`
	GeneratedAt   time.Time `json:"generatedAt"` // always UTC
	HistoricalLen int       `json:"historicalLen"`
	Points        []Point   `json:"points"`
}

// Historical returns the observation prefix of the series.
func (m MergedSeries) Historical() []Point {
	return m.Points[:m.HistoricalLen]
}

// Forecast returns the forecast suffix of the series.
func (m MergedSeries) Forecast() []Point {
	return m.Points[m.HistoricalLen:]
}

// FindByDate returns the first point whose calendar date matches day.
func (m MergedSeries) FindByDate(day time.Time) (Point, bool) {
	want := day.Format(DateLayout)
	for _, p := range m.Points {
		if p.Date.Format(DateLayout) == want {
			return p, true
		}
	}
	return Point{}, false
}

// DateLayout is the calendar-date format used for tooltips and lookups.
const DateLayout = "2006-01-02"

// NormalizeTicker returns the canonical upper-case form of a ticker symbol.
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
