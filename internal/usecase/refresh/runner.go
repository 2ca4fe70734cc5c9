// Package refresh re-runs a query on a fixed period until stopped.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Interval bounds and default.
const (
	MinInterval     = time.Second
	MaxInterval     = 30 * time.Second
	DefaultInterval = 5 * time.Second
)

// ErrStopped is returned by Run after Stop.
var ErrStopped = errors.New("refresh stopped")

// TickFunc is one refresh. tick counts from 0.
type TickFunc func(ctx context.Context, tick int) error

// Runner drives a TickFunc. A Runner is single-use: once stopped it stays stopped.
type Runner struct {
	stop chan struct{}
	once sync.Once
}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{stop: make(chan struct{})}
}

// Run calls fn immediately and then once per interval. Each tick is a discrete
// call; stop requests are checked between ticks, so Run returns within one
// period of ctx cancellation or Stop. An error from fn ends the loop.
func (r *Runner) Run(ctx context.Context, interval time.Duration, fn TickFunc) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		if err := r.halted(ctx); err != nil {
			return err
		}
		if err := fn(ctx, tick); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return ErrStopped
		case <-ticker.C:
		}
	}
}

// Stop ends Run after the tick in progress. Safe to call more than once.
func (r *Runner) Stop() {
	r.once.Do(func() { close(r.stop) })
}

func (r *Runner) halted(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stop:
		return ErrStopped
	default:
		return nil
	}
}

// ClampInterval bounds d to [lo, hi]. Zero d yields def.
func ClampInterval(d, lo, hi, def time.Duration) time.Duration {
	if d == 0 {
		d = def
	}
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
