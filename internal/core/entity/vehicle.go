package entity

import "context"

// Vehicle is an entity with the vehicle-specific control surface.
type Vehicle struct {
	*Entity
}

// SetAutopilot toggles the server-side autopilot, deferring until spawn
// when the remote counterpart does not exist yet.
func (v *Vehicle) SetAutopilot(ctx context.Context, enabled bool) error {
	return v.setOption(ctx, "autopilot", enabled)
}
