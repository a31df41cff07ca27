package series

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is the lifecycle stage of a Joiner.
type State int

const (
	StateEmpty State = iota
	StateHistoricalReady
	StateForecastReady
	StateMerged
	StateError
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateHistoricalReady:
		return "historical_ready"
	case StateForecastReady:
		return "forecast_ready"
	case StateMerged:
		return "merged"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateMerged || s == StateError
}

// ErrTerminalState is returned when an event arrives after the joiner has
// already merged or failed.
var ErrTerminalState = errors.New("joiner is in a terminal state")

// HistoricalFetch loads the observation slice of the timeline.
type HistoricalFetch func(ctx context.Context) ([]Observation, error)

// ForecastFetch loads the forecast slice of the timeline.
type ForecastFetch func(ctx context.Context) ([]ForecastPoint, error)

// Merge concatenates observations followed by forecast points, preserving the
// order within each group. It does not sort by date.
func Merge(obs []Observation, fc []ForecastPoint) []Point {
	out := make([]Point, 0, len(obs)+len(fc))
	for _, o := range obs {
		out = append(out, o.Point())
	}
	for _, f := range fc {
		out = append(out, f.Point())
	}
	return out
}

// Join runs both fetches concurrently and returns the merged timeline once
// both have succeeded. If either fails, Join fails and nothing is merged.
func Join(ctx context.Context, historical HistoricalFetch, forecast ForecastFetch) ([]Point, error) {
	return NewJoiner(historical, forecast).Run(ctx)
}

// Joiner gates the merge step on both source fetches. Completion events drive
// an explicit state machine:
//
//	Empty --historical--> HistoricalReady --forecast--> Merged
//	Empty --forecast----> ForecastReady --historical--> Merged
//	any non-terminal --failure--> Error
type Joiner struct {
	historical HistoricalFetch
	forecast   ForecastFetch

	start sync.Once
	done  chan struct{}

	mu      sync.Mutex
	state   State
	obs     []Observation
	fc      []ForecastPoint
	points  []Point
	histLen int
	err     error
}

// NewJoiner creates a Joiner in the Empty state.
func NewJoiner(historical HistoricalFetch, forecast ForecastFetch) *Joiner {
	return &Joiner{
		historical: historical,
		forecast:   forecast,
		done:       make(chan struct{}),
	}
}

// State returns the current state.
func (j *Joiner) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Err returns the failure that moved the joiner to StateError, if any.
func (j *Joiner) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// HistoricalLen is the number of observation points at the head of the
// merged result. Zero until merged.
func (j *Joiner) HistoricalLen() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.histLen
}

// Done is closed once the joiner reaches a terminal state.
func (j *Joiner) Done() <-chan struct{} {
	return j.done
}

// HistoricalLoaded records a successful historical fetch.
func (j *Joiner) HistoricalLoaded(obs []Observation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.state {
	case StateEmpty:
		j.obs = obs
		j.state = StateHistoricalReady
	case StateForecastReady:
		j.obs = obs
		j.mergeLocked()
	case StateHistoricalReady:
		return fmt.Errorf("historical data already loaded")
	default:
		return ErrTerminalState
	}
	return nil
}

// ForecastLoaded records a successful forecast fetch.
func (j *Joiner) ForecastLoaded(fc []ForecastPoint) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.state {
	case StateEmpty:
		j.fc = fc
		j.state = StateForecastReady
	case StateHistoricalReady:
		j.fc = fc
		j.mergeLocked()
	case StateForecastReady:
		return fmt.Errorf("forecast data already loaded")
	default:
		return ErrTerminalState
	}
	return nil
}

// Fail moves the joiner to StateError and discards any partial data.
func (j *Joiner) Fail(err error) error {
	if err == nil {
		err = errors.New("unknown failure")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state.Terminal() {
		return ErrTerminalState
	}
	j.err = err
	j.obs, j.fc = nil, nil
	j.state = StateError
	close(j.done)
	return nil
}

func (j *Joiner) mergeLocked() {
	j.histLen = len(j.obs)
	j.points = Merge(j.obs, j.fc)
	j.obs, j.fc = nil, nil
	j.state = StateMerged
	close(j.done)
}

// Result returns the merged points, or the failure, once terminal.
func (j *Joiner) Result() ([]Point, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.state {
	case StateMerged:
		return j.points, nil
	case StateError:
		return nil, j.err
	default:
		return nil, fmt.Errorf("joiner not finished: %s", j.state)
	}
}

// Run starts both fetches (once) and blocks until the joiner is terminal or
// ctx is done. Completions that arrive after cancellation are dropped.
func (j *Joiner) Run(ctx context.Context) ([]Point, error) {
	j.start.Do(func() {
		go func() {
			obs, err := j.historical(ctx)
			if err != nil {
				_ = j.Fail(fmt.Errorf("historical fetch: %w", err))
				return
			}
			_ = j.HistoricalLoaded(obs)
		}()
		go func() {
			fc, err := j.forecast(ctx)
			if err != nil {
				_ = j.Fail(fmt.Errorf("forecast fetch: %w", err))
				return
			}
			_ = j.ForecastLoaded(fc)
		}()
	})

	select {
	case <-j.done:
	case <-ctx.Done():
		if err := j.Fail(ctx.Err()); err == nil {
			return nil, ctx.Err()
		}
	}
	return j.Result()
}
