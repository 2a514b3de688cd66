package executor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/rpc"
)

var _ Executor = (*Driven)(nil)

// Driven owns time advancement: it switches the server to synchronous
// stepping on activation and steps it explicitly on every Tick. Exactly
// one driver may exist per server; activation fails when the server is
// already synchronous.
type Driven struct {
	server   rpc.SimServer
	logger   log.Log
	interval float64       // simulated seconds per step
	minWait  time.Duration // minimum real time between steps

	lastTick time.Time
	ticks    atomic.Uint64
	closed   atomic.Bool
}

// ActivateDriven validates the mode precondition, switches the server to
// synchronous stepping at the given interval, and forces one step so the
// setting applies immediately.
//
// minWait below zero disables pacing; exactly zero defaults it to the
// step interval in real time.
func ActivateDriven(ctx context.Context, server rpc.SimServer, logger log.Log, interval float64, minWait time.Duration) (*Driven, error) {
	cfg, err := server.Stepping(ctx)
	if err != nil {
		return nil, fmt.Errorf("read server stepping: %w", err)
	}
	if cfg.Synchronous {
		logger.Error("Server is already driven by another client")
		return nil, fmt.Errorf("server already synchronous: %w", ErrModeConflict)
	}

	if err = server.SetStepping(ctx, rpc.StepConfig{Synchronous: true, Interval: interval}); err != nil {
		return nil, fmt.Errorf("enable synchronous stepping: %w", err)
	}
	if _, err = server.Step(ctx); err != nil {
		return nil, fmt.Errorf("apply stepping settings: %w", err)
	}

	switch {
	case minWait < 0:
		minWait = 0
	case minWait == 0:
		minWait = time.Duration(interval * float64(time.Second))
	}

	d := &Driven{
		server:   server,
		logger:   logger.With(log.String("executor", "driven")),
		interval: interval,
		minWait:  minWait,
	}
	d.logger.Info("Driven executor active",
		log.Float64("interval", interval),
		log.Duration("min_tick_wait", minWait))
	return d, nil
}

func (d *Driven) Mode() Mode { return ModeDriven }

// Tick sleeps off the remainder of the minimum inter-tick interval when
// the caller ticks faster than desired, then issues one remote step.
func (d *Driven) Tick(ctx context.Context) error {
	if d.closed.Load() {
		return ErrClosed
	}

	if wait := d.minWait - time.Since(d.lastTick); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	if _, err := d.server.Step(ctx); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	d.lastTick = time.Now()
	d.ticks.Add(1)
	return nil
}

// Ticks returns how many steps this executor has issued.
func (d *Driven) Ticks() uint64 { return d.ticks.Load() }

func (d *Driven) WaitRealSeconds(ctx context.Context, duration time.Duration, opts ...WaitOption) error {
	o := applyWaitOptions(opts)
	rep := startReporter(o.sink, "Waiting for real seconds", "seconds", duration.Seconds(), o.cadence)
	defer rep.stop()

	if duration <= 0 {
		return nil
	}
	d.logger.Info("Waiting", log.Duration("real", duration))

	start := time.Now()
	for time.Since(start) < duration {
		if err := d.Tick(ctx); err != nil {
			return err
		}
		rep.update(time.Since(start).Seconds())
	}
	return nil
}

func (d *Driven) WaitSimSeconds(ctx context.Context, seconds float64, opts ...WaitOption) error {
	o := applyWaitOptions(opts)
	rep := startReporter(o.sink, "Waiting for simulation seconds", "seconds", seconds, o.cadence)
	defer rep.stop()

	if seconds <= 0 {
		return nil
	}
	d.logger.Info("Waiting", log.Float64("sim_seconds", seconds))

	begin, err := d.server.ServerTime(ctx)
	if err != nil {
		return fmt.Errorf("read server time: %w", err)
	}
	for {
		if err = d.Tick(ctx); err != nil {
			return err
		}
		now, err := d.server.ServerTime(ctx)
		if err != nil {
			return fmt.Errorf("read server time: %w", err)
		}
		spent := now.Elapsed - begin.Elapsed
		rep.update(spent)
		if spent >= seconds {
			return nil
		}
	}
}

func (d *Driven) WaitTicks(ctx context.Context, count int, opts ...WaitOption) error {
	o := applyWaitOptions(opts)
	rep := startReporter(o.sink, "Waiting for ticks", "ticks", float64(count), o.cadence)
	defer rep.stop()

	if count <= 0 {
		return nil
	}
	d.logger.Info("Waiting", log.Int("ticks", count))

	for done := 0; done < count; {
		if err := d.Tick(ctx); err != nil {
			return err
		}
		done++
		rep.update(float64(done))
	}
	return nil
}

// Spin ticks indefinitely until ctx is cancelled or an interrupt signal
// arrives. The interrupt is consumed, not propagated.
func (d *Driven) Spin(ctx context.Context, opts ...WaitOption) error {
	o := applyWaitOptions(opts)
	rep := startReporter(o.sink, "Spinning", "ticks", 0, o.cadence)
	defer rep.stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	d.logger.Info("Spinning until interrupted (press Ctrl-C to stop)")
	start := d.ticks.Load()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Context cancelled, stop spinning")
			return nil
		case <-sigCh:
			d.logger.Warn("Interrupt received, stop spinning")
			return nil
		default:
		}
		if err := d.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				d.logger.Info("Context cancelled, stop spinning")
				return nil
			}
			return err
		}
		rep.update(float64(d.ticks.Load() - start))
	}
}

// Close switches the server back to non-driven stepping unconditionally,
// leaving it safe for other clients.
func (d *Driven) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	err := d.server.SetStepping(ctx, rpc.StepConfig{Synchronous: false})
	if err != nil {
		d.logger.Error("Failed to restore asynchronous stepping", log.Error(err))
		return fmt.Errorf("restore stepping: %w", err)
	}
	d.logger.Info("Driven executor closed, server stepping restored")
	return nil
}
