// FILENAME: internal/session/session.go

// Package session holds run-scoped state shared by every handler invocation
// of one fuzzing run.
package session

import "sync"

// Store is a concurrency-safe key/value map. The zero value is ready to use.
type Store struct {
	mu     sync.Mutex
	values map[string]any
}

func New() *Store {
	return &Store{values: make(map[string]any)}
}

func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = value
}

// Get returns the value for key, or def when the key is missing.
func (s *Store) Get(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// Clear drops every key.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.values)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Increment adds one to the integer stored under key and returns the new
// value. A missing key, or one holding a non-integer, counts as zero.
func (s *Store) Increment(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	n := 0
	switch v := s.values[key].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case int32:
		n = int(v)
	}
	n++
	s.values[key] = n
	return n
}

// Snapshot copies the current contents.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
