package entity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/simlink/simlink/internal/core/rpc"
	"github.com/simlink/simlink/internal/core/tf"
)

type optionCall struct {
	id     rpc.EntityID
	option string
	value  any
}

// fakeServer records every mutating call so tests can assert exact order.
type fakeServer struct {
	mu sync.Mutex

	nextID    rpc.EntityID
	created   []rpc.CreateRequest
	destroyed []rpc.EntityID
	options   []optionCall
	live      map[rpc.EntityID]rpc.CreateRequest
	callbacks map[rpc.EntityID]rpc.SensorCallback
	poses     map[rpc.EntityID]tf.Pose

	failCreate map[string]error // by blueprint
	ignored    []string         // returned on every create
	timeout    time.Duration
}

var _ rpc.SimServer = (*fakeServer)(nil)

func newFakeServer() *fakeServer {
	return &fakeServer{
		live:       make(map[rpc.EntityID]rpc.CreateRequest),
		callbacks:  make(map[rpc.EntityID]rpc.SensorCallback),
		poses:      make(map[rpc.EntityID]tf.Pose),
		failCreate: make(map[string]error),
		timeout:    time.Second,
	}
}

func (f *fakeServer) provider() ServerProvider {
	return ServerProviderFunc(func() rpc.SimServer { return f })
}

func (f *fakeServer) Ping(context.Context) error { return nil }

func (f *fakeServer) ServerTime(context.Context) (rpc.SimTime, error) {
	return rpc.SimTime{}, nil
}

func (f *fakeServer) Stepping(context.Context) (rpc.StepConfig, error) {
	return rpc.StepConfig{}, nil
}

func (f *fakeServer) SetStepping(context.Context, rpc.StepConfig) error { return nil }

func (f *fakeServer) Step(context.Context) (uint64, error) { return 0, nil }

func (f *fakeServer) WaitForTick(context.Context) (rpc.TickInfo, error) {
	return rpc.TickInfo{}, nil
}

func (f *fakeServer) CreateEntity(_ context.Context, req rpc.CreateRequest) (rpc.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failCreate[req.Blueprint]; err != nil {
		return rpc.CreateResult{}, err
	}
	f.nextID++
	f.created = append(f.created, req)
	f.live[f.nextID] = req
	f.poses[f.nextID] = req.Pose
	return rpc.CreateResult{ID: f.nextID, Ignored: f.ignored}, nil
}

func (f *fakeServer) DestroyEntity(_ context.Context, id rpc.EntityID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[id]; !ok {
		return fmt.Errorf("entity %d not found", id)
	}
	delete(f.live, id)
	f.destroyed = append(f.destroyed, id)
	return nil
}

func (f *fakeServer) EntityPose(_ context.Context, id rpc.EntityID) (tf.Pose, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.poses[id], nil
}

func (f *fakeServer) SetEntityPose(_ context.Context, id rpc.EntityID, pose tf.Pose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poses[id] = pose
	return nil
}

func (f *fakeServer) SetEntityOption(_ context.Context, id rpc.EntityID, option string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options = append(f.options, optionCall{id: id, option: option, value: value})
	return nil
}

func (f *fakeServer) RegisterCallback(_ context.Context, id rpc.EntityID, fn rpc.SensorCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks[id] = fn
	return nil
}

func (f *fakeServer) UnregisterCallback(_ context.Context, id rpc.EntityID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.callbacks, id)
	return nil
}

func (f *fakeServer) SetTimeout(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = d
}

func (f *fakeServer) Timeout() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeout
}

func (f *fakeServer) Close() error { return nil }

func (f *fakeServer) createdBlueprints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.created))
	for i, req := range f.created {
		out[i] = req.Blueprint
	}
	return out
}

func (f *fakeServer) push(id rpc.EntityID, raw rpc.SensorRaw) bool {
	f.mu.Lock()
	fn, ok := f.callbacks[id]
	f.mu.Unlock()
	if ok {
		fn(raw)
	}
	return ok
}
