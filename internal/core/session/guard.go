// Package session composes the connection guard, the entity registry and
// the execution controllers into the lifecycle a caller interacts with.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/rpc"
)

// DefaultProbeTimeout bounds a liveness probe.
const DefaultProbeTimeout = 100 * time.Millisecond

// DialFunc establishes a server handle. Injected so tests can supply a
// fake server without a transport.
type DialFunc func(ctx context.Context) (rpc.SimServer, error)

// Guard owns the handle to the remote session: it connects, health-checks
// and disconnects, and never retries on its own. Callers decide retry
// policy.
type Guard struct {
	mu           sync.Mutex
	dial         DialFunc
	addr         string
	timeout      time.Duration
	probeTimeout time.Duration
	server       rpc.SimServer
	logger       log.Log
}

func NewGuard(dial DialFunc, addr string, timeout time.Duration, logger log.Log) *Guard {
	return &Guard{
		dial:         dial,
		addr:         addr,
		timeout:      timeout,
		probeTimeout: DefaultProbeTimeout,
		logger:       logger.With(log.String("component", "guard")),
	}
}

// TransportDialer builds a DialFunc over a concrete transport.
func TransportDialer(transport rpc.Transport, addr string, timeout time.Duration, logger log.Log) DialFunc {
	return func(ctx context.Context) (rpc.SimServer, error) {
		return rpc.Dial(ctx, transport, addr, timeout, logger)
	}
}

// Connect creates or validates the server handle against a fresh liveness
// probe. Idempotent while the existing handle still answers. A probe
// failure after connecting is fatal and surfaced with address context.
func (g *Guard) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.server != nil && g.probeLocked(ctx, g.probeTimeout) {
		g.logger.Debug("Already connected", log.String("addr", g.addr))
		return nil
	}

	server, err := g.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectFailed, g.addr, err)
	}
	g.server = server

	if !g.probeLocked(ctx, g.probeTimeout) {
		_ = server.Close()
		g.server = nil
		return fmt.Errorf("%w: %s: liveness probe failed after connect", ErrConnectFailed, g.addr)
	}

	g.logger.Info("Connected", log.String("addr", g.addr))
	return nil
}

// Disconnect releases the handle unconditionally.
func (g *Guard) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.server == nil {
		return
	}
	if err := g.server.Close(); err != nil {
		g.logger.Warn("Error while closing server handle", log.Error(err))
	}
	g.server = nil
	g.logger.Info("Disconnected", log.String("addr", g.addr))
}

// Probe issues a bounded-latency health check and reports the outcome
// without failing. The caller-configured request timeout is restored
// regardless of outcome.
func (g *Guard) Probe(ctx context.Context, timeout time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.probeLocked(ctx, timeout)
}

func (g *Guard) probeLocked(ctx context.Context, timeout time.Duration) bool {
	if g.server == nil {
		return false
	}
	g.server.SetTimeout(timeout)
	defer g.server.SetTimeout(g.timeout)

	if err := g.server.Ping(ctx); err != nil {
		g.logger.Warn("Liveness probe failed",
			log.String("addr", g.addr), log.Error(err))
		return false
	}
	return true
}

// Server returns the live handle, nil while disconnected.
func (g *Guard) Server() rpc.SimServer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.server
}

// Connected reports whether a handle is currently held. It does not probe.
func (g *Guard) Connected() bool {
	return g.Server() != nil
}

// SetProbeTimeout overrides the bound used for liveness probes issued by
// Connect. Values at or below zero keep the default.
func (g *Guard) SetProbeTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.probeTimeout = d
}
