// Package tts holds the contracts shared by the narration pipeline: the
// synthesis engine, progress reporting, human checkpoints, configuration
// and errors.
package tts

import (
	"context"
	"time"

	"github.com/dgnsrekt/narrator/tts/audio"
)

// Engine converts one sanitized utterance to audio.
type Engine interface {
	// Synthesize renders text with the given voice. Calls are independent;
	// an engine keeps no state between them.
	Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error)

	// Name identifies the engine in logs and cache keys.
	Name() string

	// Close releases resources held by the engine.
	Close() error
}

// Stage names the phase a job is in.
type Stage string

const (
	StagePrepare    Stage = "prepare"
	StageSynthesize Stage = "synthesize"
	StageFit        Stage = "fit"
	StageExport     Stage = "export"
)

// Progress is one progress report.
type Progress struct {
	Percent float64 // 0 to 100
	Done    int     // chunks or cues finished
	Total   int
	Skipped int // chunks or cues replaced by silence so far
	Stage   Stage
	Message string
}

// ProgressObserver receives progress and non-fatal warnings from a job.
// Calls come from the job goroutine and must not block.
type ProgressObserver interface {
	OnProgress(p Progress)
	OnWarning(msg string)
}

// Prompter asks the user at the two checkpoints of a subtitle job.
// A false answer aborts the job.
type Prompter interface {
	// ConfirmSkipped is asked once when too many cues were replaced by silence.
	ConfirmSkipped(skipped, total int) bool

	// ConfirmTimeout is asked once when processing has run for elapsed.
	ConfirmTimeout(elapsed time.Duration) bool
}

// NopObserver discards all reports.
type NopObserver struct{}

func (NopObserver) OnProgress(Progress) {}
func (NopObserver) OnWarning(string)    {}

// ObserverFuncs adapts plain functions to ProgressObserver. Nil fields are
// ignored.
type ObserverFuncs struct {
	Progress func(Progress)
	Warning  func(string)
}

// OnProgress implements ProgressObserver.
func (o ObserverFuncs) OnProgress(p Progress) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// OnWarning implements ProgressObserver.
func (o ObserverFuncs) OnWarning(msg string) {
	if o.Warning != nil {
		o.Warning(msg)
	}
}

// AutoPrompter answers every checkpoint with Answer without asking.
type AutoPrompter struct {
	Answer bool
}

// ConfirmSkipped implements Prompter.
func (p AutoPrompter) ConfirmSkipped(int, int) bool { return p.Answer }

// ConfirmTimeout implements Prompter.
func (p AutoPrompter) ConfirmTimeout(time.Duration) bool { return p.Answer }
