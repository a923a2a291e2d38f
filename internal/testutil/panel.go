package testutil

import (
	"context"
	"sync"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/record"
)

// RecordingPanel records every View it renders. When Echo is set and the
// panel is attached to a binding, each render re-asserts the focused ID as a
// gesture, the way a table re-selects its cursor row.
type RecordingPanel struct {
	mu      sync.Mutex
	b       *binding.Binding
	views   []binding.View
	Echo    bool
	Fail    error
	echoErr []error
}

// Attach sets the binding echoes are sent to.
func (p *RecordingPanel) Attach(b *binding.Binding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.b = b
}

// Render implements binding.Panel.
func (p *RecordingPanel) Render(ctx context.Context, v binding.View) error {
	p.mu.Lock()
	p.views = append(p.views, v)
	b, echo := p.b, p.Echo
	p.mu.Unlock()

	if echo && b != nil {
		if _, err := b.Gesture(ctx, v.Focused); err != nil {
			p.mu.Lock()
			p.echoErr = append(p.echoErr, err)
			p.mu.Unlock()
		}
	}
	return p.Fail
}

// Views returns the rendered views in order.
func (p *RecordingPanel) Views() []binding.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]binding.View(nil), p.views...)
}

// Focused returns the focused ID of every render in order.
func (p *RecordingPanel) Focused() []record.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]record.ID, len(p.views))
	for i, v := range p.views {
		out[i] = v.Focused
	}
	return out
}

// Renders returns how many times Render was called.
func (p *RecordingPanel) Renders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.views)
}

// EchoErrors returns errors returned by echo gestures.
func (p *RecordingPanel) EchoErrors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.echoErr...)
}

// Reset forgets recorded views.
func (p *RecordingPanel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = nil
	p.echoErr = nil
}
