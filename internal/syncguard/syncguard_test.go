package syncguard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatch_HoldRelease(t *testing.T) {
	l := NewLatch("table")
	assert.False(t, l.Held())
	assert.False(t, l.Echo())

	release := l.Hold()
	assert.True(t, l.Held())
	assert.True(t, l.Echo())
	assert.True(t, l.Echo(), "an echo does not clear the latch")
	assert.Equal(t, 2, l.Swallowed())

	release()
	release()
	assert.False(t, l.Held())
	assert.False(t, l.Echo())
	assert.Equal(t, 2, l.Swallowed())
}

func TestLatch_Nested(t *testing.T) {
	l := NewLatch("plot")
	outer := l.Hold()
	inner := l.Hold()
	inner()
	assert.True(t, l.Held())
	outer()
	assert.False(t, l.Held())
}

func TestLatch_ReleasedOnError(t *testing.T) {
	l := NewLatch("plot")
	render := func() error {
		defer l.Hold()()
		return errors.New("draw failed")
	}
	require.Error(t, render())
	assert.False(t, l.Held(), "a failed render must not leave the latch set")
}

func TestLatch_ReleasedOnPanic(t *testing.T) {
	l := NewLatch("plot")
	assert.Panics(t, func() {
		defer l.Hold()()
		panic("draw exploded")
	})
	assert.False(t, l.Held())
}

func TestGuard_Sides(t *testing.T) {
	g := New("plot", "table")
	assert.Equal(t, "plot", g.A().Name())
	assert.Equal(t, "table", g.Side(1).Name())
	assert.Same(t, g.B(), g.A().Peer())
	assert.Same(t, g, g.B().Guard())
	assert.Equal(t, "plot<->table", g.String())
	assert.Panics(t, func() { g.Side(2) })

	assert.False(t, g.A().Echo())
	assert.False(t, g.B().Echo())

	// While the table renders, gestures from either view are echoes.
	release := g.B().Hold()
	assert.True(t, g.Rendering())
	assert.False(t, g.A().Held())
	assert.True(t, g.A().Echo(), "the plot was moved by the table's redraw")
	assert.True(t, g.B().Echo())
	release()
	assert.False(t, g.A().Echo())
	assert.Equal(t, 2, g.Swallowed())
}

func TestGuard_Close(t *testing.T) {
	g := New("plot", "table")
	release := g.A().Hold()

	g.Close()
	g.Close()
	assert.True(t, g.Closed())
	assert.False(t, g.A().Held())
	assert.False(t, g.A().Echo())

	release() // must not underflow
	r2 := g.B().Hold()
	assert.False(t, g.B().Held())
	r2()
}

func TestStar(t *testing.T) {
	guards := Star("plot", "table", "bars", "drift")
	require.Len(t, guards, 3)
	for i, spoke := range []string{"table", "bars", "drift"} {
		assert.Equal(t, "plot", guards[i].A().Name())
		assert.Equal(t, spoke, guards[i].B().Name())
	}
	assert.NotSame(t, guards[0].A(), guards[1].A(), "each spoke gets its own hub latch")
}

func TestHoldAll(t *testing.T) {
	a, b := NewLatch("a"), NewLatch("b")
	release := HoldAll(a, b)
	assert.True(t, a.Held())
	assert.True(t, b.Held())
	release()
	release()
	assert.False(t, a.Held())
	assert.False(t, b.Held())
}

func TestEchoOn_CountsOnce(t *testing.T) {
	guards := Star("plot", "table", "bars")
	hub := []*Endpoint{guards[0].A(), guards[1].A()}

	assert.Nil(t, EchoOn(hub...))

	// The hub redraws: its echo is swallowed by the first guard only.
	release := HoldAll(hub[0].Latch, hub[1].Latch)
	assert.Same(t, guards[0], EchoOn(hub...))
	assert.Equal(t, 1, guards[0].Swallowed())
	assert.Equal(t, 0, guards[1].Swallowed())

	// Each spoke sees the hub's redraw through its own guard.
	assert.Same(t, guards[1], EchoOn(guards[1].B()))
	release()

	// A spoke redraw reaches the hub only through that spoke's guard.
	release = guards[1].B().Hold()
	assert.Same(t, guards[1], EchoOn(hub...))
	assert.Nil(t, EchoOn(guards[0].B()), "spokes are not linked to each other")
	release()

	guards[1].Close()
	release = guards[1].B().Hold()
	assert.Nil(t, EchoOn(hub...), "a closed guard swallows nothing")
	release()
}
