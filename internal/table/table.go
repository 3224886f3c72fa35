// FILENAME: internal/table/table.go

// Package table implements the append-only result table of a run.
package table

import (
	"sync"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Sink observes records as they are accepted. Sinks are called outside the
// table lock, possibly from several goroutines at once.
type Sink interface {
	Record(r *models.Response)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r *models.Response)

func (f SinkFunc) Record(r *models.Response) { f(r) }

// Table keeps accepted responses in arrival order.
type Table struct {
	mu      sync.RWMutex
	records []*models.Response
	sinks   []Sink
}

func New(sinks ...Sink) *Table {
	return &Table{sinks: sinks}
}

// Add appends r unconditionally. Nil records are ignored.
func (t *Table) Add(r *models.Response) {
	if r == nil {
		return
	}
	t.mu.Lock()
	t.records = append(t.records, r)
	sinks := t.sinks
	t.mu.Unlock()

	for _, s := range sinks {
		s.Record(r)
	}
}

// AddIf appends r when ok is true.
func (t *Table) AddIf(r *models.Response, ok bool) bool {
	if ok {
		t.Add(r)
	}
	return ok
}

// AddWhen appends r when cond(r) holds. A nil cond appends nothing.
func (t *Table) AddWhen(r *models.Response, cond func(*models.Response) bool) bool {
	if cond == nil {
		return false
	}
	return t.AddIf(r, cond(r))
}

// Records returns a snapshot of the table.
func (t *Table) Records() []*models.Response {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*models.Response, len(t.records))
	copy(out, t.records)
	return out
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
