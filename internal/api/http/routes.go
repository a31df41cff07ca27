package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/i474232898/stock-forecast-chart/internal/series"
	"github.com/i474232898/stock-forecast-chart/internal/store"
)

var validate = validator.New()

// SeriesService is what the HTTP layer needs from series.Service.
type SeriesService interface {
	Load(ctx context.Context, ticker string) (series.MergedSeries, error)
	Status(ticker string) series.Status
	GetLatest(ticker string) (series.MergedSeries, error)
	GetRange(ticker string, from, to time.Time) ([]series.MergedSeries, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. Requests that
// trigger an upstream join are bounded by loadTimeout.
func RegisterRoutes(app *fiber.App, service SeriesService, loadTimeout time.Duration, log zerolog.Logger) {
	if loadTimeout <= 0 {
		loadTimeout = 30 * time.Second
	}
	v1 := app.Group("/api/v1")

	v1.Get("/series/:ticker", func(c *fiber.Ctx) error {
		q, err := parseTickerParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), loadTimeout)
		defer cancel()

		merged, err := service.Load(ctx, q.Ticker)
		if err != nil {
			log.Error().Err(err).Str("ticker", q.Ticker).Msg("series load failed")
			return fiber.NewError(fiber.StatusBadGateway, "failed to load series from upstream")
		}

		return c.JSON(merged)
	})

	v1.Get("/series/:ticker/status", func(c *fiber.Ctx) error {
		q, err := parseTickerParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(service.Status(q.Ticker))
	})

	v1.Get("/series/:ticker/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		history, err := service.GetRange(req.Ticker.Ticker, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no series history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch series history")
		}

		return c.JSON(fiber.Map{
			"ticker": req.Ticker.Ticker,
			"from":   req.From,
			"to":     req.To,
			"series": history,
		})
	})

	v1.Get("/series/:ticker/tooltip", func(c *fiber.Ctx) error {
		q, err := parseTickerParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		day, err := time.Parse(series.DateLayout, c.Query("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}

		merged, err := service.GetLatest(q.Ticker)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no series for requested ticker")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch series")
		}

		point, ok := merged.FindByDate(day)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no point for requested date")
		}
		return c.JSON(series.Tooltip(point))
	})
}

// tickerQuery identifies a ticker from the route.
type tickerQuery struct {
	Ticker string `validate:"required,alphanum,max=10"`
}

func parseTickerParam(c *fiber.Ctx) (tickerQuery, error) {
	q := tickerQuery{Ticker: series.NormalizeTicker(c.Params("ticker"))}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery selects stored merged series by generation time.
type historyQuery struct {
	Ticker tickerQuery
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) (err error) {
	if h.Ticker, err = parseTickerParam(c); err != nil {
		return err
	}
	if h.From, err = queryTime(c, "from"); err != nil {
		return err
	}
	h.To, err = queryTime(c, "to")
	return err
}

// queryTime reads a required bound as RFC3339, YYYY-MM-DD or unix seconds.
func queryTime(c *fiber.Ctx, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, fmt.Errorf("%s query parameter is required", key)
	}
	for _, layout := range []string{time.RFC3339, series.DateLayout} {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%s: use RFC3339, YYYY-MM-DD or unix seconds", key)
}
