package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/stock-forecast-chart/internal/series"
)

// Refresher is the part of series.Service the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context, ticker string) (series.MergedSeries, error)
}

// Scheduler periodically refreshes the merged series for configured tickers.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	tickers   []string
	interval  time.Duration
	timeout   time.Duration
	log       zerolog.Logger
}

// New creates a new Scheduler. Each refresh is bounded by timeout.
func New(tickers []string, interval, timeout time.Duration, service Refresher, log zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: s,
		service:   service,
		tickers:   tickers,
		interval:  interval,
		timeout:   timeout,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.tickers) == 0 {
		s.log.Info().Msg("scheduler: no tickers configured; nothing to schedule")
		return nil
	}
	if s.interval <= 0 {
		s.log.Info().Msg("scheduler: refresh interval disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every ticker concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	s.log.Debug().Int("tickers", len(s.tickers)).Msg("scheduler: running refresh job")

	var wg sync.WaitGroup
	for _, ticker := range s.tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if _, err := s.service.Refresh(ctx, ticker); err != nil {
				s.log.Warn().Err(err).Str("ticker", ticker).Msg("scheduler: refresh failed")
			}
		}(ticker)
	}
	wg.Wait()
	s.log.Debug().Msg("scheduler: completed refresh job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
