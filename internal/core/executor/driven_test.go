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

func activateDriven(t *testing.T, srv *fakeSim, interval float64, minWait time.Duration) *Driven {
	t.Helper()
	d, err := ActivateDriven(context.Background(), srv, log.NewCapture(), interval, minWait)
	require.NoError(t, err)
	return d
}

func TestActivateDrivenRejectsSecondDriver(t *testing.T) {
	srv := newFakeSim()
	srv.cfg = rpc.StepConfig{Synchronous: true, Interval: 0.05}

	_, err := ActivateDriven(context.Background(), srv, log.NewCapture(), 0.05, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModeConflict)

	// The conflicting activation must not have touched the server.
	assert.Empty(t, srv.steppingCalls())
	assert.Zero(t, srv.stepCount())
}

func TestActivateDrivenConfiguresAndPrimes(t *testing.T) {
	srv := newFakeSim()
	d := activateDriven(t, srv, 0.05, -1)

	calls := srv.steppingCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, rpc.StepConfig{Synchronous: true, Interval: 0.05}, calls[0])
	// One priming step so the settings apply immediately.
	assert.Equal(t, 1, srv.stepCount())
	assert.Equal(t, ModeDriven, d.Mode())
}

func TestMinWaitNormalization(t *testing.T) {
	d := activateDriven(t, newFakeSim(), 0.05, -time.Second)
	assert.Equal(t, time.Duration(0), d.minWait)

	d = activateDriven(t, newFakeSim(), 0.05, 0)
	assert.Equal(t, 50*time.Millisecond, d.minWait)

	d = activateDriven(t, newFakeSim(), 0.05, 7*time.Millisecond)
	assert.Equal(t, 7*time.Millisecond, d.minWait)
}

func TestWaitTicksStepsExactly(t *testing.T) {
	srv := newFakeSim()
	d := activateDriven(t, srv, 0.01, -1)
	primed := srv.stepCount()

	require.NoError(t, d.WaitTicks(context.Background(), 5))

	assert.Equal(t, primed+5, srv.stepCount())
	assert.Equal(t, uint64(5), d.Ticks())
}

func TestZeroWaitsAreNoOps(t *testing.T) {
	srv := newFakeSim()
	d := activateDriven(t, srv, 0.01, -1)
	primed := srv.stepCount()

	ctx := context.Background()
	require.NoError(t, d.WaitTicks(ctx, 0))
	require.NoError(t, d.WaitSimSeconds(ctx, 0))
	require.NoError(t, d.WaitRealSeconds(ctx, 0))
	require.NoError(t, d.WaitTicks(ctx, -3))

	assert.Equal(t, primed, srv.stepCount())
}

func TestWaitSimSecondsMeasuresServerTime(t *testing.T) {
	srv := newFakeSim()
	d := activateDriven(t, srv, 0.1, -1)
	primed := srv.stepCount()

	require.NoError(t, d.WaitSimSeconds(context.Background(), 0.5))

	// 0.1 sim seconds per step, 0.5 requested.
	assert.Equal(t, primed+5, srv.stepCount())
}

func TestTickPacesToMinWait(t *testing.T) {
	srv := newFakeSim()
	d := activateDriven(t, srv, 0.05, 30*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, d.Tick(ctx))
	start := time.Now()
	require.NoError(t, d.Tick(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestTickHonoursCancellation(t *testing.T) {
	srv := newFakeSim()
	d := activateDriven(t, srv, 0.05, time.Hour)
	require.NoError(t, d.Tick(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Tick(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseRestoresAsynchronousStepping(t *testing.T) {
	srv := newFakeSim()
	d := activateDriven(t, srv, 0.05, -1)

	require.NoError(t, d.Close())

	calls := srv.steppingCalls()
	require.Len(t, calls, 2)
	assert.False(t, calls[1].Synchronous)

	// Idempotent: a second close does not touch the server again.
	require.NoError(t, d.Close())
	assert.Len(t, srv.steppingCalls(), 2)

	assert.ErrorIs(t, d.Tick(context.Background()), ErrClosed)
}

func TestSpinStopsOnContextCancel(t *testing.T) {
	srv := newFakeSim()
	d := activateDriven(t, srv, 0.01, -1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	// Cancellation is a clean stop, not an error.
	require.NoError(t, d.Spin(ctx))
	assert.Greater(t, srv.stepCount(), 1)
}
