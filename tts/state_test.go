package tts

import (
	"sync"
	"testing"
)

// TestStateTypeString tests the String() method for StateType.
func TestStateTypeString(t *testing.T) {
	tests := []struct {
		state    StateType
		expected string
	}{
		{StateIdle, "idle"},
		{StatePreparing, "preparing"},
		{StateSynthesizing, "synthesizing"},
		{StateFitting, "fitting"},
		{StateExporting, "exporting"},
		{StateDone, "done"},
		{StateFailed, "failed"},
		{StateAborted, "aborted"},
		{StateType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.state.String(); result != tt.expected {
				t.Errorf("StateType.String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestStatePredicates(t *testing.T) {
	tests := []struct {
		state    StateType
		active   bool
		terminal bool
	}{
		{StateIdle, false, false},
		{StatePreparing, true, false},
		{StateSynthesizing, true, false},
		{StateFitting, true, false},
		{StateExporting, true, false},
		{StateDone, false, true},
		{StateFailed, false, true},
		{StateAborted, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsActive(); got != tt.active {
				t.Errorf("IsActive() = %v, want %v", got, tt.active)
			}
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

// TestStateMachineTransitions tests valid and invalid state transitions.
func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name  string
		path  []StateType
		valid bool
	}{
		{"text job", []StateType{StatePreparing, StateSynthesizing, StateExporting, StateDone}, true},
		{"subtitle job", []StateType{StatePreparing, StateSynthesizing, StateFitting, StateExporting, StateDone}, true},
		{"abort mid synthesis", []StateType{StatePreparing, StateSynthesizing, StateAborted}, true},
		{"second job after failure", []StateType{StatePreparing, StateFailed, StatePreparing}, true},
		{"skip preparing", []StateType{StateSynthesizing}, false},
		{"done without export", []StateType{StatePreparing, StateSynthesizing, StateDone}, false},
		{"back to idle", []StateType{StatePreparing, StateIdle}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			ok := true
			for _, s := range tt.path {
				if !sm.Transition(s) {
					ok = false
					break
				}
			}
			if ok != tt.valid {
				t.Errorf("path %v valid = %v, want %v", tt.path, ok, tt.valid)
			}
		})
	}
}

func TestStateMachineCallbacks(t *testing.T) {
	sm := NewStateMachine()
	var order []string
	sm.OnExit(StateIdle, func() { order = append(order, "exit idle") })
	sm.OnEnter(StatePreparing, func() {
		// Callbacks may read the state without deadlocking.
		order = append(order, "enter "+sm.Current().String())
	})

	if !sm.Transition(StatePreparing) {
		t.Fatal("Transition(StatePreparing) failed")
	}
	if len(order) != 2 || order[0] != "exit idle" || order[1] != "enter preparing" {
		t.Errorf("callbacks ran as %v", order)
	}
	if sm.Transition(StateIdle) {
		t.Error("invalid transition should be rejected")
	}
	if sm.Current() != StatePreparing {
		t.Errorf("Current() = %v after rejected transition", sm.Current())
	}
}

func TestStateMachineConcurrentReads(t *testing.T) {
	sm := NewStateMachine()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = sm.Current()
			}
		}()
	}
	sm.Transition(StatePreparing)
	sm.Transition(StateSynthesizing)
	wg.Wait()
	if sm.Current() != StateSynthesizing {
		t.Errorf("Current() = %v", sm.Current())
	}
}
