package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/simlink/simlink/internal/core/entity"
	"github.com/simlink/simlink/internal/core/executor"
	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/rpc"
)

// State is the session lifecycle.
type State uint8

const (
	Idle State = iota
	Connected
	TornDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connected:
		return "connected"
	case TornDown:
		return "torn down"
	default:
		return "unknown"
	}
}

// Session is the aggregate root: it owns the connection guard and the
// entity registry, and hands out executors bound to the live server.
// All entities are destroyed and the handle cleared on every exit path.
type Session struct {
	mu       sync.Mutex
	state    State
	guard    *Guard
	registry *entity.Registry
	logger   log.Log
}

func New(guard *Guard, logger log.Log) *Session {
	s := &Session{
		guard:  guard,
		logger: logger.With(log.String("component", "session")),
	}
	s.registry = entity.NewRegistry(entity.ServerProviderFunc(guard.Server), logger)
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Registry exposes the entity registration surface.
func (s *Session) Registry() *entity.Registry {
	return s.registry
}

// Server returns the live server handle, nil while not connected.
func (s *Session) Server() rpc.SimServer {
	return s.guard.Server()
}

// Enter connects the session. Valid only once, from Idle.
func (s *Session) Enter(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Connected:
		s.logger.Warn("Enter called on a connected session")
		return nil
	case TornDown:
		return ErrSessionTornDown
	}

	if err := s.guard.Connect(ctx); err != nil {
		s.logger.Error("Session initialization failed", log.Error(err))
		return err
	}
	s.state = Connected
	s.logger.Info("Session begin")
	return nil
}

// Exit tears the session down: every spawned entity is destroyed, the
// connection handle is cleared, and the session becomes terminal.
// Idempotent; safe to defer.
func (s *Session) Exit(ctx context.Context) {
	s.mu.Lock()
	if s.state == TornDown {
		s.mu.Unlock()
		return
	}
	wasConnected := s.state == Connected
	s.state = TornDown
	s.mu.Unlock()

	if wasConnected {
		stillAlive := s.guard.Probe(ctx, DefaultProbeTimeout)
		if err := s.registry.DestroyAll(ctx); err != nil {
			s.logger.Error("Failed to destroy some entities on exit", log.Error(err))
		}
		s.guard.Disconnect()
		if stillAlive {
			s.logger.Info("Session exit")
		} else {
			s.logger.Warn("Session exit with failed connection")
		}
		return
	}
	s.logger.Info("Session exit")
}

// Run is the scoped form: enter, run fn, tear down on every path
// including panics, and hand back fn's error untouched.
func (s *Session) Run(ctx context.Context, fn func(ctx context.Context, s *Session) error) (err error) {
	if err = s.Enter(ctx); err != nil {
		return err
	}
	defer func() {
		// Teardown still runs when ctx is already cancelled.
		exitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exitTimeout)
		defer cancel()
		s.Exit(exitCtx)
		if r := recover(); r != nil {
			panic(r)
		}
	}()
	return fn(ctx, s)
}

const exitTimeout = 10 * time.Second

// SpawnAll spawns every registered entity in dependency order. The
// session must be connected.
func (s *Session) SpawnAll(ctx context.Context) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.registry.SpawnAll(ctx)
}

// DestroyAll destroys every spawned entity, children before parents.
func (s *Session) DestroyAll(ctx context.Context) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.registry.DestroyAll(ctx)
}

func (s *Session) requireConnected() error {
	switch s.State() {
	case Idle:
		return ErrSessionIdle
	case TornDown:
		return ErrSessionTornDown
	}
	if !s.guard.Connected() {
		return fmt.Errorf("%w: connection handle is gone", ErrSessionIdle)
	}
	return nil
}

// Driven activates a driven executor on the live server.
func (s *Session) Driven(ctx context.Context, interval float64, minWait time.Duration) (*executor.Driven, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	return executor.ActivateDriven(ctx, s.Server(), s.logger, interval, minWait)
}

// Passive activates a passive executor on the live server.
func (s *Session) Passive(ctx context.Context) (*executor.Passive, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	return executor.ActivatePassive(ctx, s.Server(), s.logger)
}
