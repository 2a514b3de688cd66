package entity

import (
	"sync"
	"sync/atomic"
	"time"
)

// Mailbox is a single-slot handoff between the sensor callback goroutine
// and consumers: the slot holds only the most recent sample, and a
// rearmable readiness gate lets consumers block for the next publish.
// Producers never block; an unread sample is simply overwritten.
type Mailbox struct {
	slot atomic.Pointer[Sample]

	mu     sync.Mutex
	ready  chan struct{} // closed while a fresh sample is available
	isOpen bool          // true when ready has been closed
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{})}
}

// Clear marks the mailbox not-ready. The callback calls it before decoding
// so a concurrent waiter never observes a half-delivered sample.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isOpen {
		m.ready = make(chan struct{})
		m.isOpen = false
	}
}

// Publish stores the sample and then signals readiness, in that order.
func (m *Mailbox) Publish(s *Sample) {
	m.slot.Store(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isOpen {
		close(m.ready)
		m.isOpen = true
	}
}

// Ready reports whether a sample is available without blocking.
func (m *Mailbox) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isOpen
}

// Latest snapshots the slot without blocking. The returned sample stays
// valid until the next callback overwrites the slot; callers needing
// persistence must copy.
func (m *Mailbox) Latest() *Sample {
	return m.slot.Load()
}

// Wait blocks until a sample is ready or the timeout elapses, returning
// the latest sample and whether readiness was observed.
func (m *Mailbox) Wait(timeout time.Duration) (*Sample, bool) {
	m.mu.Lock()
	ch := m.ready
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return m.slot.Load(), true
	case <-timer.C:
		return m.slot.Load(), false
	}
}
