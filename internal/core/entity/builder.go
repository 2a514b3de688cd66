package entity

import (
	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/tf"
)

// Builder assembles one entity fluently before registration. All methods
// are chainable; Build (or a typed variant) registers the result.
type Builder struct {
	registry  *Registry
	blueprint string
	name      string
	pose      tf.Pose
	parent    *Entity
	attrs     map[string]string
}

func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) WithPose(pose tf.Pose) *Builder {
	b.pose = pose
	return b
}

// At is shorthand for a pose with only a location.
func (b *Builder) At(x, y, z float64) *Builder {
	b.pose.Location = tf.Location{X: x, Y: y, Z: z}
	return b
}

func (b *Builder) WithParent(parent *Entity) *Builder {
	b.parent = parent
	return b
}

func (b *Builder) WithAttribute(key, value string) *Builder {
	if b.attrs == nil {
		b.attrs = make(map[string]string)
	}
	b.attrs[key] = value
	return b
}

// Build registers and returns a plain entity.
func (b *Builder) Build() *Entity {
	e := newEntity(b.registry.provider, b.registry.logger, b.blueprint)
	e.name = b.name
	e.pose = b.pose
	e.parent = b.parent
	for k, v := range b.attrs {
		e.attrs[k] = v
	}
	if b.name != "" {
		e.logger = b.registry.logger.With(log.String("entity", b.name))
	}
	b.registry.register(e)
	return e
}

// BuildVehicle registers the entity and wraps it with the vehicle surface.
func (b *Builder) BuildVehicle() *Vehicle {
	return &Vehicle{Entity: b.Build()}
}

// BuildSensor registers the entity and attaches a decoder plus the
// single-slot data channel.
func (b *Builder) BuildSensor(decoder Sensor) *SensorEntity {
	return &SensorEntity{
		Entity:  b.Build(),
		decoder: decoder,
		mailbox: NewMailbox(),
	}
}
