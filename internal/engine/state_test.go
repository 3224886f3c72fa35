// FILENAME: internal/engine/state_test.go
package engine_test

import (
	"testing"

	"github.com/xkilldash9x/mutafuzz/internal/engine"
)

func TestStateTransitions(t *testing.T) {
	valid := [][2]engine.State{
		{engine.StateNotStarted, engine.StateRunning},
		{engine.StateRunning, engine.StatePausedQuarantine},
		{engine.StatePausedQuarantine, engine.StateRunning},
		{engine.StatePaused, engine.StateStopping},
		{engine.StateStopping, engine.StateStopped},
		{engine.StateFinished, engine.StateRunning},
		{engine.StateError, engine.StateNotStarted},
	}
	for _, tr := range valid {
		if !engine.CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be allowed", tr[0], tr[1])
		}
	}

	invalid := [][2]engine.State{
		{engine.StateNotStarted, engine.StatePaused},
		{engine.StateStopped, engine.StateFinished},
		{engine.StateFinished, engine.StatePaused},
		{engine.StateStopping, engine.StateRunning},
	}
	for _, tr := range invalid {
		if engine.CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be rejected", tr[0], tr[1])
		}
	}
}

func TestStatePredicates(t *testing.T) {
	if !engine.StatePausedQuarantine.IsPaused() || !engine.StatePaused.IsActive() {
		t.Error("quarantine is a paused, active state")
	}
	if engine.StateStopping.IsTerminal() || !engine.StateStopping.IsShuttingDown() {
		t.Error("stopping is shutting down but not terminal")
	}
	if engine.State(42).String() != "UNKNOWN" {
		t.Error("out of range state should be UNKNOWN")
	}
}
