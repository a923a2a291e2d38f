package dispatch

import "sync"

// taskQueue is an unbounded FIFO of tasks.
//
// The signal channel has a buffer of one: many Posts coalesce into one
// wake-up, and Close closes it so a waiting loop wakes immediately.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]Task, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// push appends t. Returns false once the queue is closed.
func (q *taskQueue) push(t Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// pop removes the front task without blocking.
func (q *taskQueue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return t, true
}

// drop discards every queued task and returns how many there were.
func (q *taskQueue) drop() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	clear(q.tasks)
	q.tasks = q.tasks[:0]
	return n
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

func (q *taskQueue) wait() <-chan struct{} {
	return q.signal
}
