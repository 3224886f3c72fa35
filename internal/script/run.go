// FILENAME: internal/script/run.go
package script

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/filter"
	"github.com/xkilldash9x/mutafuzz/internal/fuzz"
	"github.com/xkilldash9x/mutafuzz/internal/payload"
	"github.com/xkilldash9x/mutafuzz/internal/session"
	"github.com/xkilldash9x/mutafuzz/internal/table"
)

// Run is everything a script sees during one engine run.
type Run struct {
	ID        string
	Fuzz      *fuzz.API
	Session   *session.Store
	Table     *table.Table
	Payloads  *payload.Source
	Templates *payload.Templates
	Logger    *zap.Logger
	Params    map[string]string
	Case      payload.Case
	Filters   []filter.Predicate

	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	hooks    []func()
}

// NewRun creates a run bound to engine with an empty session, table,
// payload source and template source.
func NewRun(engine fuzz.Engine, logger *zap.Logger) *Run {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	logger = logger.With(zap.String("run", id))
	return &Run{
		ID:        id,
		Fuzz:      fuzz.New(engine, logger),
		Session:   session.New(),
		Table:     table.New(),
		Payloads:  payload.NewSource(),
		Templates: payload.NewTemplates(),
		Logger:    logger,
		Params:    map[string]string{},
		stopCh:    make(chan struct{}),
	}
}

// ShouldStop reports whether the run was asked to stop.
func (r *Run) ShouldStop() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

// OnStop registers fn to run once when the run is stopped. Hooks do not
// run when the run completes normally.
func (r *Run) OnStop(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

func (r *Run) stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.mu.Lock()
		hooks := append([]func(){}, r.hooks...)
		r.mu.Unlock()
		for _, fn := range hooks {
			r.runHook(fn)
		}
	})
}

func (r *Run) runHook(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("stop hook failed", zap.String("panic", fmt.Sprint(rec)))
		}
	}()
	fn()
}

// Sleep pauses enumeration for ms milliseconds. It returns early with an
// error when ctx is done or the run stops.
func (r *Run) Sleep(ctx context.Context, ms int) error {
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-r.stopCh:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Run) Log(msg string, fields ...zap.Field) {
	r.Logger.Info(msg, fields...)
}

func (r *Run) Err(msg string, err error, fields ...zap.Field) {
	r.Logger.Error(msg, append(fields, zap.Error(err))...)
}

// Param returns a script parameter, or def when unset.
func (r *Run) Param(name, def string) string {
	if v, ok := r.Params[name]; ok && v != "" {
		return v
	}
	return def
}

// IntParam parses a script parameter as an integer.
func (r *Run) IntParam(name string, def int) (int, error) {
	v, ok := r.Params[name]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", name, err)
	}
	return n, nil
}

// Handler wraps h in the run's filters.
func (r *Run) Handler(h filter.Handler) filter.Handler {
	return filter.Stack(h, r.Filters...)
}
