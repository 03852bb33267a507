package control

import (
	"context"
	"sync"
)

type envelope struct {
	cmd   Command
	reply chan Reply
}

// Reply is the result of one command.
type Reply struct {
	Value any
	Err   error
}

// commandQueue is an unbounded FIFO with a single consumer.
type commandQueue struct {
	mu     sync.Mutex
	items  []envelope
	signal chan struct{}
	closed bool
}

func newCommandQueue() *commandQueue {
	return &commandQueue{signal: make(chan struct{}, 1)}
}

func (q *commandQueue) push(env envelope) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrStopped
	}
	q.items = append(q.items, env)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// pop blocks until a command is available or ctx is done.
func (q *commandQueue) pop(ctx context.Context) (envelope, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			env := q.items[0]
			q.items[0] = envelope{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return env, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return envelope{}, false
		case <-q.signal:
		}
	}
}

// close rejects further pushes and returns whatever was still queued.
func (q *commandQueue) close() []envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	rest := q.items
	q.items = nil
	return rest
}

func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
