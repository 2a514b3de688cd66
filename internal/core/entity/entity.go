// Package entity owns the registered simulation entities: their lifecycle
// against the remote server, parent/child spawn ordering, deferred
// configuration, and the sensor data channel.
package entity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/rpc"
	"github.com/simlink/simlink/internal/core/tf"
)

// State is the local lifecycle of an entity.
type State uint8

const (
	Unspawned State = iota
	Spawned
	Destroyed
)

func (s State) String() string {
	switch s {
	case Unspawned:
		return "unspawned"
	case Spawned:
		return "spawned"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// deferredAction is a configuration call recorded before the entity exists
// remotely, replayed in recording order once spawn completes.
type deferredAction struct {
	name  string
	apply func(ctx context.Context) error
}

// Entity represents one simulated object and its remote counterpart. The
// parent reference is non-owning; lifetime belongs to the registry.
type Entity struct {
	mu sync.Mutex

	localID   string
	blueprint string
	name      string
	pose      tf.Pose
	parent    *Entity
	attrs     map[string]string
	deferred  []deferredAction

	state    State
	remoteID rpc.EntityID

	provider ServerProvider
	logger   log.Log
}

func newEntity(provider ServerProvider, logger log.Log, blueprint string) *Entity {
	e := &Entity{
		localID:   uuid.New().String()[:8],
		blueprint: blueprint,
		attrs:     make(map[string]string),
		provider:  provider,
	}
	e.logger = logger.With(log.String("entity", e.Name()))
	return e
}

// remote resolves the live server handle. The session only exposes one
// while connected; everything remote fails cleanly before that.
func (e *Entity) remote() (rpc.SimServer, error) {
	if e.provider != nil {
		if srv := e.provider.Server(); srv != nil {
			return srv, nil
		}
	}
	return nil, rpc.ErrNotConnected
}

// ID combines the locally generated identifier with the remote one, in the
// form "local(remote)". The remote part reads "none" while unspawned.
func (e *Entity) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idLocked()
}

func (e *Entity) idLocked() string {
	if e.remoteID == rpc.RemoteNone {
		return fmt.Sprintf("%s(none)", e.localID)
	}
	return fmt.Sprintf("%s(%d)", e.localID, e.remoteID)
}

// Name returns the explicit name when one was given, otherwise a readable
// default derived from the blueprint and the local identifier.
func (e *Entity) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nameLocked()
}

func (e *Entity) nameLocked() string {
	if e.name != "" {
		return e.name
	}
	parts := strings.Split(e.blueprint, ".")
	name := parts[0]
	if len(parts) > 1 {
		name += "-" + parts[len(parts)-1]
	}
	return name + " | " + e.idLocked()
}

func (e *Entity) Blueprint() string { return e.blueprint }

func (e *Entity) Parent() *Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parent
}

func (e *Entity) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsSpawned reports whether the entity currently has a live remote
// counterpart.
func (e *Entity) IsSpawned() bool {
	return e.State() == Spawned
}

// RemoteID returns the server-side identifier, rpc.RemoteNone while the
// entity is unspawned.
func (e *Entity) RemoteID() rpc.EntityID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remoteID
}

// SetAttribute records a construction-time attribute. Attributes only feed
// the remote create call, so setting one on a spawned entity is ignored
// with a warning.
func (e *Entity) SetAttribute(key, value string) *Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Spawned {
		e.logger.Warn("Cannot set attribute on a spawned entity, ignored",
			log.String("key", key))
		return e
	}
	e.attrs[key] = value
	e.logger.Debug("Attribute set", log.String("key", key), log.String("value", value))
	return e
}

// SetGravity toggles gravity for the entity, deferring until spawn when the
// remote counterpart does not exist yet.
func (e *Entity) SetGravity(ctx context.Context, enabled bool) error {
	return e.setOption(ctx, "gravity", enabled)
}

// SetPhysics toggles physics simulation for the entity.
func (e *Entity) SetPhysics(ctx context.Context, enabled bool) error {
	return e.setOption(ctx, "physics", enabled)
}

func (e *Entity) setOption(ctx context.Context, option string, value any) error {
	e.mu.Lock()
	if e.state == Spawned {
		id := e.remoteID
		e.mu.Unlock()
		srv, err := e.remote()
		if err != nil {
			return err
		}
		if err = srv.SetEntityOption(ctx, id, option, value); err != nil {
			return fmt.Errorf("set %s: %w", option, err)
		}
		e.logger.Info("Option applied", log.String("option", option), log.Any("value", value))
		return nil
	}
	e.deferred = append(e.deferred, deferredAction{
		name: option,
		apply: func(ctx context.Context) error {
			srv, err := e.remote()
			if err != nil {
				return err
			}
			return srv.SetEntityOption(ctx, e.RemoteID(), option, value)
		},
	})
	e.mu.Unlock()
	e.logger.Debug("Option deferred until spawn",
		log.String("option", option), log.Any("value", value))
	return nil
}

// SetPose updates the entity pose. For an attached entity the pose is
// relative to its parent. The new pose is remembered locally either way and
// pushed to the server when the entity is spawned.
func (e *Entity) SetPose(ctx context.Context, pose tf.Pose) error {
	e.mu.Lock()
	e.pose = pose
	spawned := e.state == Spawned
	id := e.remoteID
	e.mu.Unlock()

	e.logger.Info("Pose set", log.String("pose", pose.String()))
	if !spawned {
		return nil
	}
	srv, err := e.remote()
	if err != nil {
		return err
	}
	if err = srv.SetEntityPose(ctx, id, pose); err != nil {
		return fmt.Errorf("set pose: %w", err)
	}
	return nil
}

// Pose returns the live pose for a spawned entity. For an unspawned one it
// warns and falls back to the last locally known pose.
func (e *Entity) Pose(ctx context.Context) (tf.Pose, error) {
	e.mu.Lock()
	spawned := e.state == Spawned
	id := e.remoteID
	stored := e.pose
	e.mu.Unlock()

	if !spawned {
		e.logger.Warn("Pose requested for a non-spawned entity, returning stored pose")
		return stored, nil
	}
	srv, err := e.remote()
	if err != nil {
		return tf.Pose{}, err
	}
	pose, err := srv.EntityPose(ctx, id)
	if err != nil {
		return tf.Pose{}, fmt.Errorf("get pose: %w", err)
	}
	return pose, nil
}

// Spawn creates the remote counterpart. A live duplicate is a conflict; a
// previously destroyed entity is re-created fresh after a warning. The
// parent, when set, must already be spawned. Deferred configuration is
// replayed in recording order after the create call succeeds.
func (e *Entity) Spawn(ctx context.Context) error {
	e.mu.Lock()

	switch e.state {
	case Spawned:
		e.mu.Unlock()
		return fmt.Errorf("entity %s: %w", e.Name(), ErrAlreadySpawned)
	case Destroyed:
		e.logger.Warn("Re-spawning a destroyed entity, a fresh remote object will be created")
	}

	attrs := make(map[string]string, len(e.attrs)+1)
	for k, v := range e.attrs {
		attrs[k] = v
	}
	if e.name != "" {
		attrs["role_name"] = e.name
	}

	req := rpc.CreateRequest{
		Blueprint:  e.blueprint,
		Attributes: attrs,
		Pose:       e.pose,
	}
	if e.parent != nil {
		if !e.parent.IsSpawned() {
			e.mu.Unlock()
			return fmt.Errorf("entity %s, parent %s: %w", e.nameLocked(), e.parent.Name(), ErrParentNotSpawned)
		}
		req.Parent = e.parent.RemoteID()
	}
	e.mu.Unlock()

	srv, err := e.remote()
	if err != nil {
		return fmt.Errorf("spawn %s: %w", e.Name(), err)
	}
	res, err := srv.CreateEntity(ctx, req)
	if err != nil {
		return fmt.Errorf("spawn %s: %w", e.Name(), err)
	}
	for _, key := range res.Ignored {
		e.logger.Warn("Attribute not recognised by blueprint, skipped", log.String("key", key))
	}

	e.mu.Lock()
	e.remoteID = res.ID
	e.state = Spawned
	deferred := e.deferred
	e.deferred = nil
	e.mu.Unlock()

	e.logger.Info("Entity spawned", log.Uint64("remote_id", uint64(res.ID)))

	for _, action := range deferred {
		if err = action.apply(ctx); err != nil {
			return fmt.Errorf("apply deferred %s on %s: %w", action.name, e.Name(), err)
		}
		e.logger.Debug("Deferred option applied", log.String("option", action.name))
	}
	return nil
}

// Destroy removes the remote counterpart. Destroying an entity that was
// never spawned (or already destroyed) warns and is a no-op.
func (e *Entity) Destroy(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Spawned {
		e.mu.Unlock()
		e.logger.Warn("Trying to destroy a non-spawned entity")
		return nil
	}
	id := e.remoteID
	e.mu.Unlock()

	srv, err := e.remote()
	if err != nil {
		return fmt.Errorf("destroy %s: %w", e.Name(), err)
	}
	if err = srv.DestroyEntity(ctx, id); err != nil {
		return fmt.Errorf("destroy %s: %w", e.Name(), err)
	}

	e.mu.Lock()
	e.remoteID = rpc.RemoteNone
	e.state = Destroyed
	e.mu.Unlock()

	e.logger.Info("Entity destroyed")
	return nil
}
