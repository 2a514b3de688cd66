// Package rpc defines the capability surface of the remote simulation server
// and a frame-based client implementation of it. Everything above this
// package treats the server as an opaque, may-fail collaborator.
package rpc

import (
	"context"
	"time"

	"github.com/simlink/simlink/internal/core/tf"
)

// EntityID is the identifier the server assigns to a spawned entity.
type EntityID uint64

// RemoteNone is the sentinel for "no remote entity".
const RemoteNone EntityID = 0

// SimTime is the server's notion of simulated time.
type SimTime struct {
	Elapsed float64 `json:"elapsed"` // simulated seconds since episode start
	Tick    uint64  `json:"tick"`
}

// StepConfig describes the server's stepping discipline. When Synchronous is
// set, some client owns time advancement and the server only moves on Step.
type StepConfig struct {
	Synchronous bool    `json:"synchronous"`
	Interval    float64 `json:"interval"` // fixed simulated seconds per step
}

// TickInfo is delivered once per completed server step.
type TickInfo struct {
	Tick    uint64  `json:"tick"`
	Elapsed float64 `json:"elapsed"`
	Delta   float64 `json:"delta"`
}

// CreateRequest carries everything needed to spawn one entity.
type CreateRequest struct {
	Blueprint  string            `json:"blueprint"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Pose       tf.Pose           `json:"pose"`
	Parent     EntityID          `json:"parent,omitempty"`
}

// CreateResult is the server's answer to CreateRequest. Ignored lists
// attribute keys the blueprint did not recognise; they are skipped
// server-side without failing the spawn.
type CreateResult struct {
	ID      EntityID `json:"id"`
	Ignored []string `json:"ignored,omitempty"`
}

// SensorRaw is one undecoded sensor measurement pushed by the server.
type SensorRaw struct {
	Entity         EntityID    `json:"entity"`
	Kind           string      `json:"kind"`
	Frame          uint64      `json:"frame"`
	Timestamp      float64     `json:"timestamp"` // simulated seconds
	Pose           tf.Pose     `json:"pose"`      // capture pose
	ParentVelocity tf.Velocity `json:"parent_velocity"`
	Width          int         `json:"width,omitempty"`  // image payloads only
	Height         int         `json:"height,omitempty"` // image payloads only
	Data           []byte      `json:"data"`
}

// SensorCallback receives raw measurements on a goroutine owned by the
// client runtime. It must not block for long; the delivery pipeline behind
// it is bounded.
type SensorCallback func(SensorRaw)

// SimServer is the remote session capability. All calls may fail with a
// connectivity error distinguishable via IsConnectivity.
type SimServer interface {
	Ping(ctx context.Context) error
	ServerTime(ctx context.Context) (SimTime, error)

	Stepping(ctx context.Context) (StepConfig, error)
	SetStepping(ctx context.Context, cfg StepConfig) error
	Step(ctx context.Context) (uint64, error)
	WaitForTick(ctx context.Context) (TickInfo, error)

	CreateEntity(ctx context.Context, req CreateRequest) (CreateResult, error)
	DestroyEntity(ctx context.Context, id EntityID) error
	EntityPose(ctx context.Context, id EntityID) (tf.Pose, error)
	SetEntityPose(ctx context.Context, id EntityID, pose tf.Pose) error
	SetEntityOption(ctx context.Context, id EntityID, option string, value any) error

	RegisterCallback(ctx context.Context, id EntityID, fn SensorCallback) error
	UnregisterCallback(ctx context.Context, id EntityID) error

	// SetTimeout adjusts the per-request deadline; Timeout reads it back.
	// The connection guard temporarily lowers it for liveness probes.
	SetTimeout(d time.Duration)
	Timeout() time.Duration

	Close() error
}
