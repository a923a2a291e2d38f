package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLoop_FIFO(t *testing.T) {
	l := startLoop(t)

	var order []int
	for i := 1; i <= 50; i++ {
		require.NoError(t, l.Post(func(ctx context.Context) error {
			order = append(order, i)
			return nil
		}))
	}
	// Do runs after everything posted before it.
	require.NoError(t, l.Do(context.Background(), func(ctx context.Context) error { return nil }))

	require.Len(t, order, 50)
	for i, v := range order {
		assert.Equal(t, i+1, v)
	}
}

func TestLoop_DoReturnsTaskError(t *testing.T) {
	l := startLoop(t)
	boom := errors.New("boom")

	err := l.Do(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	// The loop survives a failed task.
	require.NoError(t, l.Do(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, int64(1), l.Failures())
}

func TestLoop_StopRunsQueuedTasks(t *testing.T) {
	l := NewLoop()
	var ran int
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Post(func(ctx context.Context) error {
			ran++
			return nil
		}))
	}
	l.Stop()
	assert.ErrorIs(t, l.Post(func(ctx context.Context) error { return nil }), ErrStopped)

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 5, ran)
}

func TestLoop_ContextCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoop_CancelFailsQueuedDo(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	started, release := make(chan struct{}), make(chan struct{})
	require.NoError(t, l.Post(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	ran := false
	doErr := make(chan error, 1)
	go func() {
		doErr <- l.Do(context.Background(), func(ctx context.Context) error {
			ran = true
			return nil
		})
	}()
	require.Eventually(t, func() bool { return l.Pending() == 1 }, time.Second, time.Millisecond)

	cancel()
	close(release)
	assert.ErrorIs(t, <-errc, context.Canceled)

	select {
	case err := <-doErr:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("Do still waiting after Run returned")
	}
	assert.False(t, ran)
	assert.Equal(t, 0, l.Pending())
}

func TestLoop_RunTwice(t *testing.T) {
	l := startLoop(t)
	require.Eventually(t, func() bool { return l.running.Load() }, time.Second, time.Millisecond)
	assert.Error(t, l.Run(context.Background()))
}

func TestGenerations(t *testing.T) {
	g := NewGenerations()
	assert.Equal(t, uint64(0), g.Current("sample").Gen)
	assert.False(t, g.Valid(g.Current("sample")))

	t1 := g.Advance("sample")
	assert.True(t, g.Valid(t1))
	assert.Equal(t, "sample#1", t1.String())

	t2 := g.Advance("sample")
	assert.False(t, g.Valid(t1))
	assert.True(t, g.Valid(t2))

	other := g.Advance("alignment")
	assert.True(t, g.Valid(other), "keys are independent")
	assert.True(t, g.Valid(t2))
}

type closer struct {
	mu     sync.Mutex
	name   string
	closed bool
}

func (c *closer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *closer) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Switching from S1 to S2 while S1's work is still running must never let
// S1's result be applied.
func TestBackground_StaleResultDiscarded(t *testing.T) {
	l := startLoop(t)
	gens := NewGenerations()

	var applied []string
	apply := func(ctx context.Context, c *closer) error {
		applied = append(applied, c.name)
		return nil
	}

	release1 := make(chan struct{})
	s1 := &closer{name: "S1"}
	done1 := make(chan error, 1)
	tok1 := gens.Advance("sample")
	Background(context.Background(), l, gens, tok1,
		func(ctx context.Context) (*closer, error) {
			<-release1
			return s1, nil
		}, apply, done1)

	s2 := &closer{name: "S2"}
	done2 := make(chan error, 1)
	tok2 := gens.Advance("sample")
	Background(context.Background(), l, gens, tok2,
		func(ctx context.Context) (*closer, error) { return s2, nil },
		apply, done2)

	require.NoError(t, <-done2)
	close(release1)
	assert.ErrorIs(t, <-done1, ErrStale)

	require.NoError(t, l.Do(context.Background(), func(ctx context.Context) error {
		assert.Equal(t, []string{"S2"}, applied)
		return nil
	}))
	assert.True(t, s1.isClosed(), "a discarded store must be released")
	assert.False(t, s2.isClosed())
}

func TestBackground_WorkError(t *testing.T) {
	l := startLoop(t)
	gens := NewGenerations()
	boom := errors.New("index build failed")

	done := make(chan error, 1)
	called := false
	Background(context.Background(), l, gens, gens.Advance("a"),
		func(ctx context.Context) (int, error) { return 0, boom },
		func(ctx context.Context, n int) error {
			called = true
			return nil
		}, done)

	assert.ErrorIs(t, <-done, boom)
	require.NoError(t, l.Do(context.Background(), func(ctx context.Context) error { return nil }))
	assert.False(t, called)
}

func TestBackground_LoopStopped(t *testing.T) {
	l := NewLoop()
	l.Stop()
	gens := NewGenerations()
	res := &closer{name: "late"}

	done := make(chan error, 1)
	Background(context.Background(), l, gens, gens.Advance("a"),
		func(ctx context.Context) (*closer, error) { return res, nil },
		func(ctx context.Context, c *closer) error { return nil }, done)

	assert.ErrorIs(t, <-done, ErrStopped)
	assert.True(t, res.isClosed())
}
