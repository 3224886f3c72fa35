// FILENAME: internal/sync/barrier/barrier.go
package barrier

import (
	"context"
	"sync"
)

// Gate holds workers while closed and releases all of them at once when
// opened. Unlike a one-shot barrier it can be closed again, which is how
// the engine pauses and resumes dispatch.
type Gate struct {
	mu   sync.Mutex
	open chan struct{}
	held bool
}

// NewGate returns an open gate.
func NewGate() *Gate {
	ch := make(chan struct{})
	close(ch)
	return &Gate{open: ch}
}

// Hold closes the gate. Workers arriving afterwards block in Await.
func (g *Gate) Hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return
	}
	g.held = true
	g.open = make(chan struct{})
}

// Release opens the gate, waking every waiting worker.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.held {
		return
	}
	g.held = false
	close(g.open)
}

// Held reports whether the gate is closed.
func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Await blocks until the gate is open or ctx is done.
func (g *Gate) Await(ctx context.Context) error {
	g.mu.Lock()
	ch := g.open
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
