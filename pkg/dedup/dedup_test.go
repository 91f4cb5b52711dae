package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestWindow(ttl time.Duration, max int) (*Window, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	w := New(ttl, max)
	w.now = clk.now
	return w, clk
}

func TestWindow_First(t *testing.T) {
	w, clk := newTestWindow(time.Minute, 0)

	assert.True(t, w.First("req-1"))
	assert.False(t, w.First("req-1"))
	assert.True(t, w.First("req-2"))
	assert.True(t, w.First(""))
	assert.True(t, w.First(""))

	clk.t = clk.t.Add(time.Minute)
	assert.True(t, w.First("req-1"), "expired keys are processed again")
}

func TestWindow_Forget(t *testing.T) {
	w, _ := newTestWindow(time.Minute, 0)
	assert.True(t, w.First("a"))
	w.Forget("a")
	assert.True(t, w.First("a"))
}

func TestWindow_CapacityEvictsOldest(t *testing.T) {
	w, clk := newTestWindow(time.Hour, 2)

	assert.True(t, w.First("a"))
	clk.t = clk.t.Add(time.Second)
	assert.True(t, w.First("b"))
	clk.t = clk.t.Add(time.Second)
	assert.True(t, w.First("c"))

	assert.Equal(t, 2, w.Len())
	assert.True(t, w.First("a"), "oldest key was evicted")
	assert.False(t, w.First("c"))
}
