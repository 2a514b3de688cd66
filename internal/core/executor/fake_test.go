package executor

import (
	"context"
	"sync"
	"time"

	"github.com/simlink/simlink/internal/core/rpc"
	"github.com/simlink/simlink/internal/core/tf"
)

// fakeSim simulates server time: every Step advances elapsed by the
// configured interval. WaitForTick consumers are fed through tickCh.
type fakeSim struct {
	mu       sync.Mutex
	cfg      rpc.StepConfig
	steps    int
	tick     uint64
	elapsed  float64
	setCalls []rpc.StepConfig

	failStepping error
	tickCh       chan rpc.TickInfo
	timeout      time.Duration
}

var _ rpc.SimServer = (*fakeSim)(nil)

func newFakeSim() *fakeSim {
	return &fakeSim{tickCh: make(chan rpc.TickInfo, 16), timeout: time.Second}
}

func (f *fakeSim) Ping(context.Context) error { return nil }

func (f *fakeSim) ServerTime(context.Context) (rpc.SimTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return rpc.SimTime{Elapsed: f.elapsed, Tick: f.tick}, nil
}

func (f *fakeSim) Stepping(context.Context) (rpc.StepConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStepping != nil {
		return rpc.StepConfig{}, f.failStepping
	}
	return f.cfg, nil
}

func (f *fakeSim) SetStepping(_ context.Context, cfg rpc.StepConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	f.setCalls = append(f.setCalls, cfg)
	return nil
}

func (f *fakeSim) Step(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps++
	f.tick++
	f.elapsed += f.cfg.Interval
	return f.tick, nil
}

func (f *fakeSim) WaitForTick(ctx context.Context) (rpc.TickInfo, error) {
	select {
	case info := <-f.tickCh:
		return info, nil
	case <-ctx.Done():
		return rpc.TickInfo{}, ctx.Err()
	}
}

func (f *fakeSim) CreateEntity(context.Context, rpc.CreateRequest) (rpc.CreateResult, error) {
	return rpc.CreateResult{}, nil
}

func (f *fakeSim) DestroyEntity(context.Context, rpc.EntityID) error { return nil }

func (f *fakeSim) EntityPose(context.Context, rpc.EntityID) (tf.Pose, error) {
	return tf.Pose{}, nil
}

func (f *fakeSim) SetEntityPose(context.Context, rpc.EntityID, tf.Pose) error { return nil }

func (f *fakeSim) SetEntityOption(context.Context, rpc.EntityID, string, any) error {
	return nil
}

func (f *fakeSim) RegisterCallback(context.Context, rpc.EntityID, rpc.SensorCallback) error {
	return nil
}

func (f *fakeSim) UnregisterCallback(context.Context, rpc.EntityID) error { return nil }

func (f *fakeSim) SetTimeout(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = d
}

func (f *fakeSim) Timeout() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeout
}

func (f *fakeSim) Close() error { return nil }

func (f *fakeSim) stepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps
}

func (f *fakeSim) steppingCalls() []rpc.StepConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rpc.StepConfig, len(f.setCalls))
	copy(out, f.setCalls)
	return out
}
