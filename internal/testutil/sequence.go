package testutil

import (
	"fmt"
	"sync"
)

// Sequence is a resettable monotonic counter. Harness traces number their
// steps with it so the same scenario yields the same trace on every run.
//
// Thread-safety: all methods are safe for concurrent use.
type Sequence struct {
	mu sync.Mutex
	n  int64
}

// NewSequence returns a sequence whose first Next is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next increments and returns the counter.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

// Current returns the counter without incrementing.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Reset sets the counter back to 0.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}

// GestureIDs generates "<prefix>-0001", "<prefix>-0002", ... without end.
// It satisfies focus.GestureIDGenerator.
type GestureIDs struct {
	prefix string
	seq    Sequence
}

// NewGestureIDs returns a generator. An empty prefix means "gesture".
func NewGestureIDs(prefix string) *GestureIDs {
	if prefix == "" {
		prefix = "gesture"
	}
	return &GestureIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *GestureIDs) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq.Next())
}

// Reset restarts the numbering.
func (g *GestureIDs) Reset() {
	g.seq.Reset()
}
