package tts

import "sync"

// StateType represents the lifecycle state of a narration job.
type StateType int

const (
	// StateIdle indicates no job has run yet.
	StateIdle StateType = iota
	// StatePreparing covers reading input and loading the dictionary.
	StatePreparing
	// StateSynthesizing indicates chunks or cues are being rendered.
	StateSynthesizing
	// StateFitting indicates the adaptive speed search is running.
	StateFitting
	// StateExporting indicates the result is being written.
	StateExporting
	// StateDone indicates the job finished and its output exists.
	StateDone
	// StateFailed indicates the job ended with an error.
	StateFailed
	// StateAborted indicates the user cancelled or declined a checkpoint.
	StateAborted
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateSynthesizing:
		return "synthesizing"
	case StateFitting:
		return "fitting"
	case StateExporting:
		return "exporting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// IsActive returns true while a job is running.
func (s StateType) IsActive() bool {
	return s >= StatePreparing && s <= StateExporting
}

// IsTerminal returns true once a job has ended, however it ended.
func (s StateType) IsTerminal() bool {
	return s == StateDone || s == StateFailed || s == StateAborted
}

// StateMachine guards job state transitions. It is safe for concurrent use;
// callbacks run with the lock released.
type StateMachine struct {
	mu          sync.RWMutex
	current     StateType
	transitions map[StateType][]StateType
	onEnter     map[StateType]func()
	onExit      map[StateType]func()
}

// NewStateMachine creates a new state machine with valid transitions.
func NewStateMachine() *StateMachine {
	ended := []StateType{StatePreparing}
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:         {StatePreparing},
			StatePreparing:    {StateSynthesizing, StateFailed, StateAborted},
			StateSynthesizing: {StateFitting, StateExporting, StateFailed, StateAborted},
			StateFitting:      {StateExporting, StateFailed, StateAborted},
			StateExporting:    {StateDone, StateFailed, StateAborted},
			StateDone:         ended,
			StateFailed:       ended,
			StateAborted:      ended,
		},
		onEnter: make(map[StateType]func()),
		onExit:  make(map[StateType]func()),
	}
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to StateType) bool {
	sm.mu.Lock()
	from := sm.current
	valid := false
	for _, state := range sm.transitions[from] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		sm.mu.Unlock()
		return false
	}
	sm.current = to
	exitFn := sm.onExit[from]
	enterFn := sm.onEnter[to]
	sm.mu.Unlock()

	if exitFn != nil {
		exitFn()
	}
	if enterFn != nil {
		enterFn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state StateType, fn func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onEnter[state] = fn
}

// OnExit registers a callback for exiting a state.
func (sm *StateMachine) OnExit(state StateType, fn func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onExit[state] = fn
}
