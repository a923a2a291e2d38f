package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/spotview/internal/focus"
)

func TestSequence(t *testing.T) {
	s := NewSequence()
	assert.Equal(t, int64(0), s.Current())
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	s.Reset()
	assert.Equal(t, int64(1), s.Next())
}

func TestSequence_ThreadSafe(t *testing.T) {
	s := NewSequence()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(5000), s.Current())
}

func TestGestureIDs(t *testing.T) {
	var g focus.GestureIDGenerator = NewGestureIDs("")
	assert.Equal(t, "gesture-0001", g.Generate())
	assert.Equal(t, "gesture-0002", g.Generate())

	h := NewGestureIDs("scn")
	h.Generate()
	h.Reset()
	assert.Equal(t, "scn-0001", h.Generate())
}
