package focus

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// GestureIDGenerator produces the IDs that correlate one user action across
// every focus mutation, render and log line it causes.
type GestureIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 gesture IDs.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined gesture IDs, for tests and golden
// traces. It panics once the IDs run out.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator returns a generator yielding ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next ID.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all gesture ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

type gestureKey struct{}

// WithGesture attaches a gesture ID to ctx. Set uses it instead of
// generating a new one.
func WithGesture(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, gestureKey{}, id)
}

// GestureFrom returns the gesture ID attached to ctx, if any.
func GestureFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(gestureKey{}).(string)
	return id, ok && id != ""
}
