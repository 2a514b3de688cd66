package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelSilent, ParseLevel("off"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestCaptureRecordsThroughChildren(t *testing.T) {
	c := NewCapture()
	child := c.With(String("component", "guard"))

	c.Info("parent message")
	child.Warn("child message", Error(errors.New("boom")))

	entries := c.Entries()
	assert.Len(t, entries, 2)
	assert.True(t, c.Contains(LevelInfo, "parent"))
	assert.True(t, c.Contains(LevelWarn, "child"))
	assert.False(t, c.Contains(LevelError, "child"))
}

func TestCaptureWithFieldsAreMerged(t *testing.T) {
	c := NewCapture()
	c.With(String("a", "1")).With(String("b", "2")).Info("msg", Int("c", 3))

	entries := c.Entries()
	assert.Len(t, entries, 1)

	keys := make([]string, 0, len(entries[0].Fields))
	for _, f := range entries[0].Fields {
		keys = append(keys, f.Key)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, keys)
}

func TestLoggerLevelRoundTrip(t *testing.T) {
	l := New(LevelWarn)
	assert.Equal(t, LevelWarn, l.GetLevel())
	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, l.GetLevel())
}
