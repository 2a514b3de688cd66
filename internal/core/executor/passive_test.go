package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/rpc"
)

func activatePassive(t *testing.T, srv *fakeSim) (*Passive, *log.Capture) {
	t.Helper()
	capture := log.NewCapture()
	p, err := ActivatePassive(context.Background(), srv, capture)
	require.NoError(t, err)
	return p, capture
}

func TestActivatePassiveWarnsOnSynchronousServer(t *testing.T) {
	srv := newFakeSim()
	srv.cfg = rpc.StepConfig{Synchronous: true, Interval: 0.05}

	_, capture := activatePassive(t, srv)
	assert.True(t, capture.Contains(log.LevelWarn, "synchronous"))
}

func TestPassiveTickIsWarningNoOp(t *testing.T) {
	srv := newFakeSim()
	p, capture := activatePassive(t, srv)

	require.NoError(t, p.Tick(context.Background()))

	assert.Zero(t, srv.stepCount())
	assert.True(t, capture.Contains(log.LevelWarn, "passive"))
}

func TestPassiveWaitTicksConsumesNotifications(t *testing.T) {
	srv := newFakeSim()
	p, _ := activatePassive(t, srv)

	for i := 1; i <= 3; i++ {
		srv.tickCh <- rpc.TickInfo{Tick: uint64(i), Elapsed: float64(i) * 0.05, Delta: 0.05}
	}

	require.NoError(t, p.WaitTicks(context.Background(), 3))
	assert.Zero(t, srv.stepCount())
}

func TestPassiveWaitSimSecondsUsesTickElapsed(t *testing.T) {
	srv := newFakeSim()
	p, _ := activatePassive(t, srv)

	go func() {
		for i := 1; i <= 10; i++ {
			srv.tickCh <- rpc.TickInfo{Tick: uint64(i), Elapsed: float64(i) * 0.1, Delta: 0.1}
		}
	}()

	// Server time starts at zero; four ticks of 0.1 reach 0.35.
	require.NoError(t, p.WaitSimSeconds(context.Background(), 0.35))
	assert.Zero(t, srv.stepCount())
}

func TestPassiveWaitRealSecondsElapses(t *testing.T) {
	srv := newFakeSim()
	p, _ := activatePassive(t, srv)

	start := time.Now()
	require.NoError(t, p.WaitRealSeconds(context.Background(), 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestPassiveWaitRealSecondsHonoursCancellation(t *testing.T) {
	srv := newFakeSim()
	p, _ := activatePassive(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.WaitRealSeconds(ctx, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPassiveCloseIsIdempotent(t *testing.T) {
	srv := newFakeSim()
	p, _ := activatePassive(t, srv)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Tick(context.Background()), ErrClosed)

	// Passive mode never changed the server's stepping.
	assert.Empty(t, srv.steppingCalls())
}
