// Package executor drives simulated time. A Driven executor owns time
// advancement against the server; a Passive one only observes another
// driver. Both expose the same blocking wait surface.
package executor

import (
	"context"
	"errors"
	"time"
)

// Mode is the stepping discipline of an executor.
type Mode uint8

const (
	ModeDriven Mode = iota
	ModePassive
)

func (m Mode) String() string {
	switch m {
	case ModeDriven:
		return "driven"
	case ModePassive:
		return "passive"
	default:
		return "unknown"
	}
}

// Executor errors
var (
	// ErrModeConflict means the server's stepping mode is incompatible
	// with the requested activation: a second driver would corrupt the
	// simulation.
	ErrModeConflict = errors.New("server stepping mode conflicts with requested executor mode")
	// ErrClosed means the executor was already torn down.
	ErrClosed = errors.New("executor is closed")
)

// Executor is the dual-mode execution controller. Waits use live elapsed
// measurements, tolerate zero durations as immediate no-ops, and stop
// their progress reporter on every return path.
type Executor interface {
	Mode() Mode

	// Tick advances simulated time by one step in Driven mode. In
	// Passive mode it logs a warning and does nothing.
	Tick(ctx context.Context) error

	// Spin blocks until ctx is cancelled or an interrupt signal arrives,
	// then returns cleanly.
	Spin(ctx context.Context, opts ...WaitOption) error

	WaitRealSeconds(ctx context.Context, d time.Duration, opts ...WaitOption) error
	WaitSimSeconds(ctx context.Context, seconds float64, opts ...WaitOption) error
	WaitTicks(ctx context.Context, count int, opts ...WaitOption) error

	// Close tears the executor down, restoring the server's stepping
	// mode where the activation changed it.
	Close() error
}

// waitOptions collects per-wait settings.
type waitOptions struct {
	sink    ProgressFunc
	cadence time.Duration
}

// WaitOption adjusts a single wait call.
type WaitOption func(*waitOptions)

// WithProgress reports wait progress to sink at the default 1 Hz cadence.
func WithProgress(sink ProgressFunc) WaitOption {
	return func(o *waitOptions) { o.sink = sink }
}

// WithProgressCadence overrides the reporting cadence.
func WithProgressCadence(cadence time.Duration) WaitOption {
	return func(o *waitOptions) { o.cadence = cadence }
}

func applyWaitOptions(opts []WaitOption) waitOptions {
	o := waitOptions{cadence: time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// closeTimeout bounds the remote calls made while tearing an executor
// down; teardown must finish even when the caller's context is gone.
const closeTimeout = 5 * time.Second
