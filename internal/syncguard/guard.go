package syncguard

import "fmt"

// Guard is the pair of latches for two mutually linked views. Side 0
// belongs to the first view and side 1 to the second: each view holds its
// own side while it renders, so the roles alternate with whichever view is
// downstream of a change.
type Guard struct {
	sides     [2]*Endpoint
	closed    bool
	swallowed int
}

// Endpoint is one view's side of a Guard.
type Endpoint struct {
	*Latch
	guard *Guard
	side  int
}

// New links the views a and b.
func New(a, b string) *Guard {
	g := &Guard{}
	g.sides[0] = &Endpoint{Latch: NewLatch(a), guard: g, side: 0}
	g.sides[1] = &Endpoint{Latch: NewLatch(b), guard: g, side: 1}
	return g
}

// Side returns endpoint 0 or 1.
func (g *Guard) Side(i int) *Endpoint {
	if i != 0 && i != 1 {
		panic(fmt.Sprintf("syncguard: side %d out of range", i))
	}
	return g.sides[i]
}

// A returns the first view's endpoint.
func (g *Guard) A() *Endpoint { return g.sides[0] }

// B returns the second view's endpoint.
func (g *Guard) B() *Endpoint { return g.sides[1] }

// Close makes both latches inert. Safe to call twice.
func (g *Guard) Close() {
	if g.closed {
		return
	}
	g.closed = true
	g.sides[0].disable()
	g.sides[1].disable()
}

// Closed reports whether Close has been called.
func (g *Guard) Closed() bool { return g.closed }

// Swallowed returns the echoes the guard has dropped, one per gesture.
func (g *Guard) Swallowed() int { return g.swallowed }

// Rendering reports whether either view of the pair is rendering.
func (g *Guard) Rendering() bool {
	return g.sides[0].Held() || g.sides[1].Held()
}

func (g *Guard) String() string {
	return fmt.Sprintf("%s<->%s", g.sides[0].Name(), g.sides[1].Name())
}

// Guard returns the guard the endpoint belongs to.
func (e *Endpoint) Guard() *Guard { return e.guard }

// Peer returns the endpoint on the other side.
func (e *Endpoint) Peer() *Endpoint { return e.guard.sides[1-e.side] }

// Live reports whether the guard is still open.
func (e *Endpoint) Live() bool { return !e.guard.closed }

// Echo reports whether a gesture from this endpoint's view is an echo. It
// is when the view itself is rendering, or when its peer is rendering and
// the redraw reached across the link. The echo is counted once, on the
// guard.
func (e *Endpoint) Echo() bool {
	if !e.guard.Rendering() {
		return false
	}
	e.guard.swallowed++
	return true
}

// Star links a hub view to each spoke with an independent Guard. Guard i
// has the hub on side 0 and spokes[i] on side 1.
func Star(hub string, spokes ...string) []*Guard {
	out := make([]*Guard, len(spokes))
	for i, s := range spokes {
		out[i] = New(hub, s)
	}
	return out
}

// HoldAll holds every latch and returns one release for all of them.
func HoldAll(latches ...*Latch) (release func()) {
	releases := make([]func(), 0, len(latches))
	for _, l := range latches {
		releases = append(releases, l.Hold())
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}

// EchoOn returns the first guard that swallows a gesture made from the view
// owning endpoints, or nil when the gesture is genuine. Only that guard
// counts the echo.
func EchoOn(endpoints ...*Endpoint) *Guard {
	for _, e := range endpoints {
		if e.Echo() {
			return e.guard
		}
	}
	return nil
}
