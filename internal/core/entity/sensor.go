package entity

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/rpc"
	"github.com/simlink/simlink/internal/core/tf"
)

// Sample is one decoded sensor measurement. It is owned by the mailbox
// slot until the next callback overwrites it.
type Sample struct {
	Payload   any
	Frame     uint64
	Timestamp float64 // simulated seconds
	Pose      tf.Pose // capture pose
}

// Sensor decodes raw server payloads into the kind-specific shape. One
// implementation per sensor kind.
type Sensor interface {
	Kind() string
	Decode(raw rpc.SensorRaw) (*Sample, error)
}

// SensorEntity is an entity that produces measurements. It owns exactly
// one mailbox slot; intermediate samples are dropped when the consumer
// cannot keep up, never queued.
type SensorEntity struct {
	*Entity

	decoder   Sensor
	mailbox   *Mailbox
	listening atomic.Bool
}

func (s *SensorEntity) Decoder() Sensor { return s.decoder }

// Listen arms the server-driven callback. The entity must be spawned.
func (s *SensorEntity) Listen(ctx context.Context) error {
	if !s.IsSpawned() {
		return fmt.Errorf("sensor %s: %w", s.Name(), ErrNotSpawned)
	}
	if !s.listening.CompareAndSwap(false, true) {
		return fmt.Errorf("sensor %s: %w", s.Name(), ErrAlreadyListening)
	}
	srv, err := s.remote()
	if err != nil {
		s.listening.Store(false)
		return fmt.Errorf("listen %s: %w", s.Name(), err)
	}
	if err = srv.RegisterCallback(ctx, s.RemoteID(), s.onData); err != nil {
		s.listening.Store(false)
		return fmt.Errorf("listen %s: %w", s.Name(), err)
	}
	s.logger.Info("Sensor listening", log.String("kind", s.decoder.Kind()))
	return nil
}

// Stop disarms the callback. Stopping a sensor that is not listening is a
// no-op with a log.
func (s *SensorEntity) Stop(ctx context.Context) error {
	if !s.listening.CompareAndSwap(true, false) {
		s.logger.Warn("Stop called on a sensor that is not listening")
		return nil
	}
	srv, err := s.remote()
	if err != nil {
		return fmt.Errorf("stop %s: %w", s.Name(), err)
	}
	if err = srv.UnregisterCallback(ctx, s.RemoteID()); err != nil {
		return fmt.Errorf("stop %s: %w", s.Name(), err)
	}
	s.logger.Info("Sensor stopped")
	return nil
}

// onData runs on the client runtime's dispatch goroutine, concurrent with
// consumer reads. Readiness is cleared before decoding and set only after
// the sample has landed in the slot.
func (s *SensorEntity) onData(raw rpc.SensorRaw) {
	s.mailbox.Clear()

	sample, err := s.decoder.Decode(raw)
	if err != nil {
		s.logger.Warn("Failed to decode sensor payload",
			log.Uint64("frame", raw.Frame), log.Error(err))
		return
	}

	s.mailbox.Publish(sample)
	s.logger.Debug("Sample captured",
		log.Uint64("frame", sample.Frame),
		log.Float64("timestamp", sample.Timestamp))
}

// Latest returns the most recent sample without blocking, or nil when
// nothing has arrived yet.
func (s *SensorEntity) Latest() *Sample {
	return s.mailbox.Latest()
}

// WaitData blocks until a fresh sample is ready or the timeout elapses.
func (s *SensorEntity) WaitData(timeout time.Duration) (*Sample, bool) {
	return s.mailbox.Wait(timeout)
}
