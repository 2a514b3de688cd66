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

// pollInterval paces passive real-time waits so the loop stays responsive
// without spinning the CPU.
const pollInterval = 10 * time.Millisecond

var _ Executor = (*Passive)(nil)

// Passive observes simulated time advanced by another party. It never
// issues a remote step; waits block on the server's per-tick notification
// or sleep in small increments.
type Passive struct {
	server rpc.SimServer
	logger log.Log
	closed atomic.Bool
}

// ActivatePassive checks the server's stepping mode. A synchronous server
// is only a warning: another client may legitimately be driving it.
func ActivatePassive(ctx context.Context, server rpc.SimServer, logger log.Log) (*Passive, error) {
	p := &Passive{
		server: server,
		logger: logger.With(log.String("executor", "passive")),
	}
	cfg, err := server.Stepping(ctx)
	if err != nil {
		return nil, fmt.Errorf("read server stepping: %w", err)
	}
	if cfg.Synchronous {
		p.logger.Warn("Server is in synchronous stepping; make sure another client is driving it")
	}
	p.logger.Info("Passive executor active")
	return p, nil
}

func (p *Passive) Mode() Mode { return ModePassive }

// Tick performs no remote action: a passive executor structurally cannot
// drive the simulation.
func (p *Passive) Tick(_ context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}
	p.logger.Warn("Tick requested on a passive executor, nothing will happen")
	return nil
}

func (p *Passive) WaitRealSeconds(ctx context.Context, duration time.Duration, opts ...WaitOption) error {
	o := applyWaitOptions(opts)
	rep := startReporter(o.sink, "Waiting for real seconds", "seconds", duration.Seconds(), o.cadence)
	defer rep.stop()

	if duration <= 0 {
		return nil
	}
	p.logger.Info("Waiting", log.Duration("real", duration))

	start := time.Now()
	for {
		remaining := duration - time.Since(start)
		if remaining <= 0 {
			return nil
		}
		sleep := pollInterval
		if remaining < sleep {
			sleep = remaining
		}
		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		rep.update(time.Since(start).Seconds())
	}
}

func (p *Passive) WaitSimSeconds(ctx context.Context, seconds float64, opts ...WaitOption) error {
	o := applyWaitOptions(opts)
	rep := startReporter(o.sink, "Waiting for simulation seconds", "seconds", seconds, o.cadence)
	defer rep.stop()

	if seconds <= 0 {
		return nil
	}
	p.logger.Info("Waiting", log.Float64("sim_seconds", seconds))

	begin, err := p.server.ServerTime(ctx)
	if err != nil {
		return fmt.Errorf("read server time: %w", err)
	}
	for {
		info, err := p.server.WaitForTick(ctx)
		if err != nil {
			return fmt.Errorf("wait for tick: %w", err)
		}
		spent := info.Elapsed - begin.Elapsed
		rep.update(spent)
		if spent >= seconds {
			return nil
		}
	}
}

func (p *Passive) WaitTicks(ctx context.Context, count int, opts ...WaitOption) error {
	o := applyWaitOptions(opts)
	rep := startReporter(o.sink, "Waiting for ticks", "ticks", float64(count), o.cadence)
	defer rep.stop()

	if count <= 0 {
		return nil
	}
	p.logger.Info("Waiting", log.Int("ticks", count))

	for done := 0; done < count; {
		if _, err := p.server.WaitForTick(ctx); err != nil {
			return fmt.Errorf("wait for tick: %w", err)
		}
		done++
		rep.update(float64(done))
	}
	return nil
}

// Spin sleeps until ctx is cancelled or an interrupt signal arrives. The
// interrupt is consumed, not propagated.
func (p *Passive) Spin(ctx context.Context, opts ...WaitOption) error {
	o := applyWaitOptions(opts)
	rep := startReporter(o.sink, "Spinning", "seconds", 0, o.cadence)
	defer rep.stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	p.logger.Info("Spinning until interrupted (press Ctrl-C to stop)")
	start := time.Now()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Context cancelled, stop spinning")
			return nil
		case <-sigCh:
			p.logger.Warn("Interrupt received, stop spinning")
			return nil
		case <-ticker.C:
			rep.update(time.Since(start).Seconds())
		}
	}
}

// Close tears the executor down. Passive mode never changed the server's
// stepping, so there is nothing to restore.
func (p *Passive) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.logger.Info("Passive executor closed")
	return nil
}
