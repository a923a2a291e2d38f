package dispatch

import (
	"fmt"
	"sync"
)

// Token is a generation stamp for one key.
type Token struct {
	Key string
	Gen uint64
}

func (t Token) String() string {
	return fmt.Sprintf("%s#%d", t.Key, t.Gen)
}

// Generations hands out monotonic per-key tokens. Advancing a key
// invalidates every token issued for it before.
//
// Safe for concurrent use: background workers check validity while the
// loop advances.
type Generations struct {
	mu  sync.Mutex
	gen map[string]uint64
}

// NewGenerations creates an empty tracker.
func NewGenerations() *Generations {
	return &Generations{gen: make(map[string]uint64)}
}

// Advance starts a new generation for key and returns its token.
func (g *Generations) Advance(key string) Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen[key]++
	return Token{Key: key, Gen: g.gen[key]}
}

// Current returns the latest token for key. Gen is 0 before the first
// Advance.
func (g *Generations) Current(key string) Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Token{Key: key, Gen: g.gen[key]}
}

// Valid reports whether t is still the latest token for its key.
func (g *Generations) Valid(t Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t.Gen != 0 && g.gen[t.Key] == t.Gen
}
