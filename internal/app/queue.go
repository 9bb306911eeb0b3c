package app

import (
	"sync"

	"github.com/gammazero/deque"
)

type op struct {
	name string
	fn   func()
}

// opQueue is an unbounded FIFO. push never blocks, so engine callbacks that
// fire while an operation is running cannot deadlock the actor.
type opQueue struct {
	mu     sync.Mutex
	ops    deque.Deque[op]
	closed bool
	notify chan struct{}
}

func newOpQueue() *opQueue {
	return &opQueue{notify: make(chan struct{}, 1)}
}

func (q *opQueue) push(o op) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.ops.PushBack(o)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

func (q *opQueue) pop() (op, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ops.Len() == 0 {
		return op{}, false
	}
	return q.ops.PopFront(), true
}

// close rejects further pushes and returns what was still queued.
func (q *opQueue) close() []op {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	rest := make([]op, 0, q.ops.Len())
	for q.ops.Len() > 0 {
		rest = append(rest, q.ops.PopFront())
	}
	return rest
}
