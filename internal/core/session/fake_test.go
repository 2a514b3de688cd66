package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/simlink/simlink/internal/core/rpc"
	"github.com/simlink/simlink/internal/core/tf"
)

// fakeServer records calls the guard and the session make against it.
type fakeServer struct {
	mu sync.Mutex

	pingErr         error
	failNextPings   int
	timeout         time.Duration
	setTimeoutCalls []time.Duration
	pings           int
	closed          bool

	nextID    rpc.EntityID
	live      map[rpc.EntityID]bool
	destroyed int
}

var _ rpc.SimServer = (*fakeServer)(nil)

func newFakeServer() *fakeServer {
	return &fakeServer{live: make(map[rpc.EntityID]bool)}
}

func (f *fakeServer) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.failNextPings > 0 {
		f.failNextPings--
		return errors.New("ping failed")
	}
	return f.pingErr
}

func (f *fakeServer) setPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

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

func (f *fakeServer) CreateEntity(context.Context, rpc.CreateRequest) (rpc.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.live[f.nextID] = true
	return rpc.CreateResult{ID: f.nextID}, nil
}

func (f *fakeServer) DestroyEntity(_ context.Context, id rpc.EntityID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, id)
	f.destroyed++
	return nil
}

func (f *fakeServer) EntityPose(context.Context, rpc.EntityID) (tf.Pose, error) {
	return tf.Pose{}, nil
}

func (f *fakeServer) SetEntityPose(context.Context, rpc.EntityID, tf.Pose) error { return nil }

func (f *fakeServer) SetEntityOption(context.Context, rpc.EntityID, string, any) error {
	return nil
}

func (f *fakeServer) RegisterCallback(context.Context, rpc.EntityID, rpc.SensorCallback) error {
	return nil
}

func (f *fakeServer) UnregisterCallback(context.Context, rpc.EntityID) error { return nil }

func (f *fakeServer) SetTimeout(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = d
	f.setTimeoutCalls = append(f.setTimeoutCalls, d)
}

func (f *fakeServer) Timeout() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeout
}

func (f *fakeServer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeServer) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

func (f *fakeServer) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// dialer counts dials and hands out srv, or fails with err.
type dialer struct {
	mu    sync.Mutex
	srv   *fakeServer
	err   error
	dials int
}

func (d *dialer) dial(context.Context) (rpc.SimServer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.srv, nil
}

func (d *dialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
