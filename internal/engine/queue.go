// FILENAME: internal/engine/queue.go
package engine

import (
	"context"
	"sync"

	"github.com/xkilldash9x/mutafuzz/internal/fuzz"
	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// job is one queued task, already resolved into a prepared request.
type job struct {
	id       int64
	learn    fuzz.Learn
	req      *models.CapturedRequest
	payloads []string
}

// jobQueue is an unbounded FIFO. push never blocks; pop waits for an item
// until the queue is closed and drained or ctx is done.
type jobQueue struct {
	mu     sync.Mutex
	items  []*job
	ready  chan struct{}
	closed bool
}

func newJobQueue() *jobQueue {
	return &jobQueue{ready: make(chan struct{}, 1)}
}

func (q *jobQueue) push(j *job) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, j)
	q.mu.Unlock()
	q.signal()
	return true
}

func (q *jobQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pop returns nil once the queue is closed and empty.
func (q *jobQueue) pop(ctx context.Context) *job {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			j := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				// Pass the wakeup on to the next idle worker
				q.signal()
			}
			return j
		}
		if q.closed {
			q.mu.Unlock()
			q.signal()
			return nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil
		}
	}
}

func (q *jobQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *jobQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
