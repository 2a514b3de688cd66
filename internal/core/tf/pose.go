// Package tf holds the minimal spatial types exchanged with the simulation
// server. Pose composition and coordinate conversion live outside this module.
package tf

import "fmt"

// Location is a position in meters, simulator frame.
type Location struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Rotation in degrees.
type Rotation struct {
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

// Velocity is a linear velocity vector in meters per second.
type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pose is a location plus an orientation. For entities attached to a parent
// the pose is relative to that parent.
type Pose struct {
	Location Location `json:"location" yaml:"location"`
	Rotation Rotation `json:"rotation" yaml:"rotation"`
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f | %.1f, %.1f, %.1f)",
		p.Location.X, p.Location.Y, p.Location.Z,
		p.Rotation.Pitch, p.Rotation.Yaw, p.Rotation.Roll)
}
