package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/i474232898/stock-forecast-chart/internal/series"
)

// ArimaConfig configures the forecast provider.
type ArimaConfig struct {
	BaseURL string
	// DateOffset shifts synthesized dates: point i is dated today+i+DateOffset.
	DateOffset int
	// ValueField names the predicted value inside each data element.
	ValueField string
	Location   *time.Location
	Now        func() time.Time
	Client     *http.Client
	Backoff    BackoffConfig
}

// ArimaProvider implements series.ForecastProvider for the
// /api/getthirtydaysarima/{TICKER} endpoint. The upstream does not send
// dates; they are derived from the local calendar.
type ArimaProvider struct {
	name       string
	baseURL    string
	dateOffset int
	valueField string
	loc        *time.Location
	now        func() time.Time
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

func NewArimaProvider(cfg ArimaConfig) *ArimaProvider {
	backoff := cfg.Backoff
	if backoff.InitialInterval <= 0 {
		backoff = DefaultBackoff
	}
	field := cfg.ValueField
	if field == "" {
		field = "pred"
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &ArimaProvider{
		name:       "arima",
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		dateOffset: cfg.DateOffset,
		valueField: field,
		loc:        loc,
		now:        now,
		httpCfg: HTTPClientConfig{
			Client:  cfg.Client,
			Backoff: backoff,
		},
		circuit: newCircuitBreaker("arima"),
	}
}

func (p *ArimaProvider) Name() string {
	return p.name
}

func (p *ArimaProvider) FetchForecast(ctx context.Context, ticker string) ([]series.ForecastPoint, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("arima base url is not configured")
	}

	u := fmt.Sprintf("%s/api/getthirtydaysarima/%s", p.baseURL, url.PathEscape(ticker))
	body, err := fetchBody(ctx, p.httpCfg, p.circuit, u)
	if err != nil {
		return nil, err
	}

	return ParseForecast(body, Today(p.now(), p.loc), p.dateOffset, p.valueField)
}

// ParseForecast decodes {data: [...]} and dates element i as
// today+i+offset days. Elements are objects carrying valueField (and
// optionally upper/lower), or bare numbers.
func ParseForecast(body []byte, today time.Time, offset int, valueField string) ([]series.ForecastPoint, error) {
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: expected a data array", ErrMalformedPayload)
	}

	items := data.Array()
	points := make([]series.ForecastPoint, 0, len(items))
	for i, rec := range items {
		fp := series.ForecastPoint{Date: today.AddDate(0, 0, i+offset)}

		switch {
		case rec.IsObject():
			pred, err := numberField(rec, valueField)
			if err != nil {
				return nil, fmt.Errorf("forecast %d: %w", i, err)
			}
			fp.Pred = pred
			if fp.Upper, err = optionalNumber(rec, "upper"); err != nil {
				return nil, fmt.Errorf("forecast %d: %w", i, err)
			}
			if fp.Lower, err = optionalNumber(rec, "lower"); err != nil {
				return nil, fmt.Errorf("forecast %d: %w", i, err)
			}
		default:
			pred, err := coerceNumber(rec, valueField)
			if err != nil {
				return nil, fmt.Errorf("forecast %d: %w", i, err)
			}
			fp.Pred = pred
		}

		points = append(points, fp)
	}
	return points, nil
}
