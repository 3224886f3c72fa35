// FILENAME: internal/session/session_test.go
package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/mutafuzz/internal/session"
)

func TestStore_Basics(t *testing.T) {
	s := session.New()

	assert.Equal(t, "fallback", s.Get("missing", "fallback"))
	assert.False(t, s.Contains("k"))

	s.Set("k", "v")
	assert.True(t, s.Contains("k"))
	assert.Equal(t, "v", s.Get("k", nil))

	s.Set("k", nil)
	assert.True(t, s.Contains("k"), "nil value is still a present key")
	assert.Nil(t, s.Get("k", "default"))

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("k"))
}

func TestStore_ZeroValue(t *testing.T) {
	var s session.Store
	assert.Equal(t, 1, s.Increment("x"))
	s.Set("y", 2)
	assert.Equal(t, 2, s.Get("y", 0))
}

func TestStore_IncrementTreatsJunkAsZero(t *testing.T) {
	s := session.New()
	s.Set("str", "not a number")
	assert.Equal(t, 1, s.Increment("str"))

	s.Set("wide", int64(41))
	assert.Equal(t, 42, s.Increment("wide"))
}

func TestStore_IncrementConcurrent(t *testing.T) {
	const n = 500
	s := session.New()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Increment("x")
		}()
	}
	wg.Wait()

	require.Equal(t, n, s.Get("x", 0))
	require.Equal(t, map[string]any{"x": n}, s.Snapshot())
}
