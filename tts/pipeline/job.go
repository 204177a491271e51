// Package pipeline runs narration jobs: it owns the session state shared
// between jobs and the controller that runs one job at a time.
package pipeline

import (
	"time"

	"github.com/dgnsrekt/narrator/tts/audio"
	"github.com/dgnsrekt/narrator/tts/subtitle"
	"github.com/google/uuid"
)

// Mode selects how a job's input is interpreted.
type Mode string

const (
	// ModeText narrates free text.
	ModeText Mode = "text"
	// ModeSubtitle dubs a subtitle track onto its timeline.
	ModeSubtitle Mode = "subtitle"
)

// Job is one narration request.
type Job struct {
	ID   string
	Mode Mode

	Text     string // ModeText input
	Markdown bool   // Text is markdown source
	Cues     []subtitle.Cue

	// Output is the destination file. Empty keeps the audio in the result
	// only.
	Output string
	Voice  string  // empty uses the configured voice
	Speed  float64 // zero uses the configured speed

	// Budget asks text mode to fit the result into this length.
	Budget time.Duration
}

// NewTextJob creates a free-text job.
func NewTextJob(text, output string) *Job {
	return &Job{ID: uuid.NewString(), Mode: ModeText, Text: text, Output: output}
}

// NewSubtitleJob creates a subtitle dubbing job.
func NewSubtitleJob(cues []subtitle.Cue, output string) *Job {
	return &Job{ID: uuid.NewString(), Mode: ModeSubtitle, Cues: cues, Output: output}
}

// Result describes a finished job.
type Result struct {
	JobID    string
	Mode     Mode
	Output   string
	Audio    *audio.Buffer
	Duration time.Duration
	Speed    float64
	Budget   time.Duration
	Skipped  int
	Total    int // chunks or cues
	Elapsed  time.Duration
	Warnings []string
}
