package entity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/rpc"
)

// ServerProvider resolves the current server handle. Entities go through
// it on every remote call, so a session can connect after registration.
type ServerProvider interface {
	Server() rpc.SimServer
}

// ServerProviderFunc adapts a closure into a ServerProvider.
type ServerProviderFunc func() rpc.SimServer

func (f ServerProviderFunc) Server() rpc.SimServer { return f() }

// Registry owns the set of registered entities in registration order and
// performs dependency-ordered spawn and destroy against the server.
// Registration and spawn/destroy are expected to run on one control
// goroutine; the mutex makes concurrent misuse safe rather than intended.
type Registry struct {
	mu       sync.Mutex
	provider ServerProvider
	logger   log.Log
	entities []*Entity
}

func NewRegistry(provider ServerProvider, logger log.Log) *Registry {
	return &Registry{
		provider: provider,
		logger:   logger.With(log.String("component", "registry")),
	}
}

// New starts a fluent builder for an entity with the given blueprint. The
// entity joins the registry on Build; nothing is spawned eagerly.
func (r *Registry) New(blueprint string) *Builder {
	return &Builder{registry: r, blueprint: blueprint}
}

func (r *Registry) register(e *Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = append(r.entities, e)
	r.logger.Debug("Entity registered",
		log.String("entity", e.Name()),
		log.Int("total", len(r.entities)))
}

// Entities returns a snapshot of the registered entities in registration
// order.
func (r *Registry) Entities() []*Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

// SpawnedCount returns how many registered entities are currently spawned.
func (r *Registry) SpawnedCount() int {
	count := 0
	for _, e := range r.Entities() {
		if e.IsSpawned() {
			count++
		}
	}
	return count
}

// SpawnAll spawns every registered entity in dependency order. A failure
// aborts the remainder but leaves earlier spawns intact; callers inspect
// registry state afterward rather than assuming all-or-nothing.
func (r *Registry) SpawnAll(ctx context.Context) error {
	order, err := spawnOrder(r.Entities())
	if err != nil {
		return fmt.Errorf("resolve spawn order: %w", err)
	}

	r.logger.Info("Spawning entities", log.Int("count", len(order)))
	for _, e := range order {
		if err = e.Spawn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DestroyAll destroys every currently spawned entity, children before
// parents, registration order within a level. Failures on individual
// entities are collected so the rest still get destroyed.
func (r *Registry) DestroyAll(ctx context.Context) error {
	entities := r.Entities()
	order, graphErr := destroyOrder(entities)
	if graphErr != nil {
		// The forest was already validated if anything spawned; fall back
		// to reverse registration order rather than leaking entities.
		r.logger.Warn("Destroy order unresolvable, using reverse registration order", log.Error(graphErr))
		order = make([]*Entity, len(entities))
		for i, e := range entities {
			order[len(entities)-1-i] = e
		}
	}

	var errs []error
	for _, e := range order {
		if err := e.Destroy(ctx); err != nil {
			r.logger.Error("Failed to destroy entity",
				log.String("entity", e.Name()), log.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
