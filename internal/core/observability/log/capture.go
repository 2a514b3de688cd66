package log

import (
	"strings"
	"sync"
)

var _ Log = (*Capture)(nil)

// Capture records every log call in memory. It exists so tests can assert
// on warnings and expected transitions without parsing process output.
// Loggers derived via With share the parent's sink.
type Capture struct {
	state *captureState
	with  []Field
}

type captureState struct {
	mu      sync.Mutex
	entries []Entry
	level   Level
}

// Entry is one recorded log call.
type Entry struct {
	Level   Level
	Message string
	Fields  []Field
}

func NewCapture() *Capture {
	return &Capture{state: &captureState{level: LevelDebug}}
}

func (c *Capture) record(level Level, msg string, fields []Field) {
	all := make([]Field, 0, len(c.with)+len(fields))
	all = append(all, c.with...)
	all = append(all, fields...)

	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.entries = append(c.state.entries, Entry{Level: level, Message: msg, Fields: all})
}

func (c *Capture) Debug(msg string, fields ...Field) { c.record(LevelDebug, msg, fields) }
func (c *Capture) Info(msg string, fields ...Field)  { c.record(LevelInfo, msg, fields) }
func (c *Capture) Warn(msg string, fields ...Field)  { c.record(LevelWarn, msg, fields) }
func (c *Capture) Error(msg string, fields ...Field) { c.record(LevelError, msg, fields) }

func (c *Capture) With(fields ...Field) Log {
	child := &Capture{state: c.state}
	child.with = append(child.with, c.with...)
	child.with = append(child.with, fields...)
	return child
}

func (c *Capture) SetLevel(level Level) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.level = level
}

func (c *Capture) GetLevel() Level {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.level
}

// Entries returns a copy of everything recorded so far.
func (c *Capture) Entries() []Entry {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	out := make([]Entry, len(c.state.entries))
	copy(out, c.state.entries)
	return out
}

// Contains reports whether any entry at the given level contains substr.
func (c *Capture) Contains(level Level, substr string) bool {
	for _, e := range c.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
