package entity

import "errors"

// Entity lifecycle and registry errors
var (
	ErrAlreadySpawned   = errors.New("entity is already spawned")
	ErrNotSpawned       = errors.New("entity is not spawned")
	ErrParentNotSpawned = errors.New("parent entity is not spawned")
	ErrParentUnknown    = errors.New("parent entity is not registered")
	ErrDependencyCycle  = errors.New("entity dependency cycle")
	ErrAlreadyListening = errors.New("sensor is already listening")
)
