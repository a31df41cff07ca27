package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/i474232898/stock-forecast-chart/internal/series"
)

// StockRealConfig configures the historical price provider.
type StockRealConfig struct {
	BaseURL string
	// Days is the look-back window requested from the upstream.
	Days int
	// Limit keeps only the last Limit observations (0 keeps all).
	Limit   int
	Client  *http.Client
	Backoff BackoffConfig
}

// StockRealProvider implements series.HistoricalProvider for the
// /stockreal/{TICKER}/{DAYS} endpoint.
type StockRealProvider struct {
	name    string
	baseURL string
	days    int
	limit   int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewStockRealProvider(cfg StockRealConfig) *StockRealProvider {
	backoff := cfg.Backoff
	if backoff.InitialInterval <= 0 {
		backoff = DefaultBackoff
	}
	days := cfg.Days
	if days <= 0 {
		days = 30
	}

	return &StockRealProvider{
		name:    "stockreal",
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		days:    days,
		limit:   cfg.Limit,
		httpCfg: HTTPClientConfig{
			Client:  cfg.Client,
			Backoff: backoff,
		},
		circuit: newCircuitBreaker("stockreal"),
	}
}

func (p *StockRealProvider) Name() string {
	return p.name
}

func (p *StockRealProvider) FetchHistorical(ctx context.Context, ticker string) ([]series.Observation, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("stockreal base url is not configured")
	}

	u := fmt.Sprintf("%s/stockreal/%s/%s", p.baseURL, url.PathEscape(ticker), strconv.Itoa(p.days))
	body, err := fetchBody(ctx, p.httpCfg, p.circuit, u)
	if err != nil {
		return nil, err
	}

	return ParseObservations(body, p.limit)
}

// ParseObservations decodes a JSON array of
// {date, Open, High, Low, Close, Volume, ["Adj Close"]} records. Prices may be
// encoded as numbers or numeric strings. When limit > 0 only the last limit
// records are returned.
func ParseObservations(body []byte, limit int) ([]series.Observation, error) {
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected a JSON array of observations", ErrMalformedPayload)
	}

	items := root.Array()
	obs := make([]series.Observation, 0, len(items))
	for i, rec := range items {
		o, err := parseObservation(rec)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
		obs = append(obs, o)
	}

	if limit > 0 && len(obs) > limit {
		obs = obs[len(obs)-limit:]
	}
	return obs, nil
}

func parseObservation(rec gjson.Result) (series.Observation, error) {
	if !rec.IsObject() {
		return series.Observation{}, fmt.Errorf("%w: expected an object", ErrMalformedPayload)
	}

	dateVal := rec.Get("date")
	if !dateVal.Exists() {
		dateVal = rec.Get("Date")
	}
	date, err := parseDate(dateVal)
	if err != nil {
		return series.Observation{}, err
	}

	var o series.Observation
	o.Date = date
	if o.Open, err = numberField(rec, "Open"); err != nil {
		return series.Observation{}, err
	}
	if o.High, err = numberField(rec, "High"); err != nil {
		return series.Observation{}, err
	}
	if o.Low, err = numberField(rec, "Low"); err != nil {
		return series.Observation{}, err
	}
	if o.Close, err = numberField(rec, "Close"); err != nil {
		return series.Observation{}, err
	}
	if o.Volume, err = volumeField(rec, "Volume"); err != nil {
		return series.Observation{}, err
	}
	if o.AdjClose, err = optionalNumber(rec, "Adj Close"); err != nil {
		return series.Observation{}, err
	}
	return o, nil
}
