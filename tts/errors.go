package tts

import (
	"errors"
	"fmt"
	"time"
)

// Errors surfaced by the narration pipeline.
var (
	// ErrEncoding means a subtitle file could not be decoded with any known encoding.
	ErrEncoding = errors.New("unsupported subtitle encoding")
	// ErrMalformedCue marks a single subtitle cue that could not be parsed.
	ErrMalformedCue = errors.New("malformed subtitle cue")
	// ErrSynthesis marks a failed engine call for one chunk or cue.
	ErrSynthesis = errors.New("synthesis failed")
	// ErrEmptyOutput means a whole job produced no audio.
	ErrEmptyOutput = errors.New("audio is empty: nothing was synthesized")
	// ErrUserAbort is returned when the user declines to continue or cancels.
	ErrUserAbort = errors.New("aborted by user")

	ErrNoCues        = errors.New("no subtitle cues found")
	ErrJobRunning    = errors.New("a synthesis job is already running")
	ErrNoInput       = errors.New("nothing to synthesize")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsFatal reports whether err ends a job rather than degrading it.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	for _, fatal := range []error{ErrEncoding, ErrEmptyOutput, ErrUserAbort, ErrNoCues, ErrJobRunning, ErrInvalidConfig} {
		if errors.Is(err, fatal) {
			return true
		}
	}
	return false
}

// Severity represents how much an error affects the job.
type Severity int

const (
	// SeverityWarning is logged and the job continues.
	SeverityWarning Severity = iota
	// SeverityError ends the job.
	SeverityError
)

// Error provides detailed error information.
type Error struct {
	Err       error          // The underlying error
	Component string         // Component that generated the error
	Action    string         // Action being performed when error occurred
	Cue       int            // Cue or chunk index, -1 when not applicable
	Severity  Severity       // Severity of the error
	Timestamp time.Time      // When the error occurred
	Context   map[string]any // Additional context
}

// NewError wraps err with the component and action that produced it.
func NewError(err error, component, action string) *Error {
	return &Error{
		Err:       err,
		Component: component,
		Action:    action,
		Cue:       -1,
		Severity:  SeverityError,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Cue >= 0 {
		return fmt.Sprintf("%s: %s (cue %d): %s", e.Component, e.Action, e.Cue+1, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Action, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCue records the cue or chunk index.
func (e *Error) WithCue(i int) *Error {
	e.Cue = i
	return e
}

// WithSeverity sets the error severity.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
