package syncguard

// Latch marks a view as rendering in response to a notification.
//
// Latches are used from the dispatch goroutine only.
type Latch struct {
	name      string
	depth     int
	swallowed int
	inert     bool
}

// NewLatch returns an unheld latch.
func NewLatch(name string) *Latch {
	return &Latch{name: name}
}

// Name returns the latch's name.
func (l *Latch) Name() string { return l.name }

// Hold sets the latch until the returned release is called. Holds nest;
// release is idempotent. An inert latch returns a no-op release.
//
//	release := l.Hold()
//	defer release()
func (l *Latch) Hold() (release func()) {
	if l.inert {
		return func() {}
	}
	l.depth++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		if l.depth > 0 {
			l.depth--
		}
	}
}

// Held reports whether a render currently holds the latch.
func (l *Latch) Held() bool {
	return !l.inert && l.depth > 0
}

// Echo reports whether a gesture arriving now is an echo. Each echo is
// counted; the latch stays held.
func (l *Latch) Echo() bool {
	if !l.Held() {
		return false
	}
	l.swallowed++
	return true
}

// Swallowed returns the number of echoes dropped so far.
func (l *Latch) Swallowed() int { return l.swallowed }

// disable makes the latch inert. Outstanding holds are forgotten.
func (l *Latch) disable() {
	l.inert = true
	l.depth = 0
}
