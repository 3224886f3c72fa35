// FILENAME: internal/script/script.go

// Package script runs a fuzzing script against an engine. A script
// enumerates tasks through the fuzz API on its own goroutine while the
// engine delivers responses to the script's handler.
package script

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/filter"
	"github.com/xkilldash9x/mutafuzz/internal/fuzz"
	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Engine is the fuzz contract plus the run loop that drives it.
type Engine interface {
	fuzz.Engine
	Run(ctx context.Context, handler filter.Handler) error
	OnStop(fn func())
}

// Script is one fuzzing strategy.
type Script interface {
	Name() string
	// Enumerate queues or sends tasks. It must return once run.ShouldStop
	// reports true or ctx is done.
	Enumerate(ctx context.Context, run *Run) error
	// HandleResponse receives every delivered response, after the run's
	// filters. Calls are concurrent.
	HandleResponse(run *Run, r *models.Response)
}

// Stopper is implemented by scripts that need cleanup when a run is stopped.
type Stopper interface {
	OnStop(run *Run)
}

// Execute runs s against e: enumeration on its own goroutine, responses
// through run's filters into s.HandleResponse. It returns when the engine
// finishes or stops and enumeration has returned.
func Execute(ctx context.Context, s Script, e Engine, run *Run) error {
	if st, ok := s.(Stopper); ok {
		run.OnStop(func() { st.OnStop(run) })
	}
	e.OnStop(run.stop)

	handler := run.Handler(func(r *models.Response) {
		s.HandleResponse(run, r)
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	enumDone := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("script %s panicked: %v", s.Name(), rec)
				run.Logger.Error("Enumeration panicked", zap.String("script", s.Name()), zap.Stack("stack"))
			}
			run.Fuzz.Done()
			enumDone <- err
		}()

		run.Logger.Info("Enumeration started", zap.String("script", s.Name()))
		err = s.Enumerate(ctx, run)
		if err != nil {
			run.Err("Enumeration failed", err)
		}
	}()

	runErr := e.Run(ctx, handler)
	// Release an enumeration still sleeping after a stop
	cancel()
	enumErr := <-enumDone

	if errors.Is(enumErr, context.Canceled) {
		enumErr = nil
	}
	return errors.Join(runErr, enumErr)
}

// Registry maps script names to constructors.
type Registry struct {
	mu      sync.RWMutex
	scripts map[string]func() Script
}

func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]func() Script)}
}

// Register adds a constructor. Registering a name twice replaces it.
func (r *Registry) Register(name string, newScript func() Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[name] = newScript
}

// Get returns a fresh instance of the named script.
func (r *Registry) Get(name string) (Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	newScript, ok := r.scripts[name]
	if !ok {
		return nil, fmt.Errorf("unknown script %q (available: %v)", name, r.namesLocked())
	}
	return newScript(), nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.scripts))
	for n := range r.scripts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
