package entity

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxStartsEmpty(t *testing.T) {
	m := NewMailbox()

	assert.False(t, m.Ready())
	assert.Nil(t, m.Latest())

	sample, ok := m.Wait(10 * time.Millisecond)
	assert.False(t, ok)
	assert.Nil(t, sample)
}

func TestMailboxKeepsOnlyLatest(t *testing.T) {
	m := NewMailbox()

	for frame := uint64(1); frame <= 5; frame++ {
		m.Clear()
		m.Publish(&Sample{Frame: frame})
	}

	require.True(t, m.Ready())
	assert.Equal(t, uint64(5), m.Latest().Frame)
}

func TestMailboxClearRearmsGate(t *testing.T) {
	m := NewMailbox()

	m.Publish(&Sample{Frame: 1})
	require.True(t, m.Ready())

	m.Clear()
	assert.False(t, m.Ready())
	// The stale slot value is still visible to Latest.
	assert.Equal(t, uint64(1), m.Latest().Frame)

	_, ok := m.Wait(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestMailboxWaitUnblocksOnPublish(t *testing.T) {
	m := NewMailbox()

	var wg sync.WaitGroup
	wg.Add(1)
	var got *Sample
	var ok bool
	go func() {
		defer wg.Done()
		got, ok = m.Wait(5 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	m.Publish(&Sample{Frame: 7})
	wg.Wait()

	require.True(t, ok)
	assert.Equal(t, uint64(7), got.Frame)
}

func TestMailboxPublishStoresBeforeSignalling(t *testing.T) {
	m := NewMailbox()

	done := make(chan *Sample, 1)
	go func() {
		s, waited := m.Wait(5 * time.Second)
		if waited {
			done <- s
		}
	}()

	time.Sleep(10 * time.Millisecond)
	m.Clear()
	m.Publish(&Sample{Frame: 42})

	select {
	case s := <-done:
		// A waiter released by the gate always sees the sample that armed it.
		assert.NotNil(t, s)
		assert.Equal(t, uint64(42), s.Frame)
	case <-time.After(time.Second):
		t.Fatal("waiter was never released")
	}
}
