// Package sync renders a subtitle track into one audio track that follows the
// cue timeline.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
	"github.com/dgnsrekt/narrator/tts/normalize"
	"github.com/dgnsrekt/narrator/tts/sentence"
	"github.com/dgnsrekt/narrator/tts/subtitle"
)

// cueState is the per-cue retry state.
type cueState int

const (
	tryFull cueState = iota
	tryReduced
	skip
	done
)

func (s cueState) String() string {
	switch s {
	case tryFull:
		return "full"
	case tryReduced:
		return "reduced"
	case skip:
		return "skip"
	default:
		return "done"
	}
}

// errNothingToSay marks a cue whose text is empty after cleanup.
var errNothingToSay = errors.New("nothing to synthesize")

// Options tune a Synchronizer.
type Options struct {
	Voice       string
	Speed       float64 // initial speed of the full pipeline
	MaxSpeed    float64 // cap of the adaptive search
	SpeedStep   float64
	SkipRatio   float64       // skipped/total above this asks ConfirmSkipped
	PromptAfter time.Duration // zero disables the timeout checkpoint
	SampleRate  int
	Dictionary  *normalize.Dictionary
	Segmenter   *sentence.Segmenter
}

// DefaultOptions mirrors tts.DefaultConfig for subtitle jobs.
func DefaultOptions() Options {
	cfg := tts.DefaultConfig()
	return OptionsFromConfig(&cfg)
}

// OptionsFromConfig derives subtitle-mode options from cfg.
func OptionsFromConfig(cfg *tts.Config) Options {
	return Options{
		Voice:       cfg.Voice,
		Speed:       cfg.ClampSpeed(cfg.Speed, true),
		MaxSpeed:    cfg.MaxSpeed(true),
		SpeedStep:   cfg.SpeedStep,
		SkipRatio:   cfg.SkipRatio,
		PromptAfter: cfg.PromptAfter,
		SampleRate:  cfg.SampleRate,
		Segmenter:   &sentence.Segmenter{Threshold: cfg.Segment.Threshold, MaxChunk: cfg.Segment.MaxChunk},
	}
}

// Result describes a finished track.
type Result struct {
	Audio    *audio.Buffer
	Speed    float64       // final speed after the adaptive search
	Budget   time.Duration // end of the last cue
	Skipped  int
	Total    int
	Fits     bool
	Warnings []string
}

// Synchronizer drives per-cue synthesis for one track.
type Synchronizer struct {
	engine    tts.Engine
	opts      Options
	observer  tts.ProgressObserver
	prompter  tts.Prompter
	cancelled func() bool
	now       func() time.Time
}

// New creates a Synchronizer. Nil observer and prompter default to a no-op
// observer and a prompter that always continues.
func New(engine tts.Engine, opts Options, observer tts.ProgressObserver, prompter tts.Prompter) *Synchronizer {
	if observer == nil {
		observer = tts.NopObserver{}
	}
	if prompter == nil {
		prompter = tts.AutoPrompter{Answer: true}
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.MaxSpeed < opts.Speed {
		opts.MaxSpeed = opts.Speed
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}
	if opts.Segmenter == nil {
		opts.Segmenter = sentence.NewSegmenter()
	}
	return &Synchronizer{
		engine:    engine,
		opts:      opts,
		observer:  observer,
		prompter:  prompter,
		cancelled: func() bool { return false },
		now:       time.Now,
	}
}

// SetCancel installs the flag polled before each cue and chunk.
func (s *Synchronizer) SetCancel(cancelled func() bool) {
	if cancelled != nil {
		s.cancelled = cancelled
	}
}

// Run synthesizes cues in source order and fits the result to the end of the
// last cue.
func (s *Synchronizer) Run(ctx context.Context, cues []subtitle.Cue) (*Result, error) {
	if len(cues) == 0 {
		return nil, tts.ErrNoCues
	}

	res := &Result{Total: len(cues)}
	out := audio.New(s.opts.SampleRate)
	started := s.now()
	prevEnd := 0.0

	var timeoutAnswer chan bool
	asked := false

	for i, cue := range cues {
		if err := s.checkAbort(ctx); err != nil {
			return nil, err
		}

		// Checkpoint: ask once, keep going while the answer is pending.
		if !asked && s.opts.PromptAfter > 0 {
			if elapsed := s.now().Sub(started); elapsed >= s.opts.PromptAfter {
				asked = true
				timeoutAnswer = make(chan bool, 1)
				go func(answer chan<- bool) { answer <- s.prompter.ConfirmTimeout(elapsed) }(timeoutAnswer)
			}
		}
		if timeoutAnswer != nil {
			select {
			case ok := <-timeoutAnswer:
				timeoutAnswer = nil
				if !ok {
					return nil, tts.NewError(tts.ErrUserAbort, "sync", "timeout checkpoint").WithCue(i)
				}
			default:
			}
		}

		if gap := cue.Start - prevEnd; gap > 0 {
			out.AppendSilence(seconds(gap))
		}

		buf, err := s.renderCue(ctx, i, cue)
		if err != nil {
			return nil, err
		}
		if buf == nil {
			nominal := max(cue.Duration(), 0)
			out.AppendSilence(seconds(nominal))
			prevEnd = cue.End
			res.Skipped++
			s.warn(res, fmt.Sprintf("cue %d replaced by %.1fs of silence", i+1, nominal))
		} else {
			out.Append(buf)
			prevEnd = cue.Start + buf.Seconds()
		}

		s.observer.OnProgress(tts.Progress{
			Percent: float64(i+1) / float64(len(cues)) * 100,
			Done:    i + 1,
			Total:   len(cues),
			Skipped: res.Skipped,
			Stage:   tts.StageSynthesize,
		})
	}

	if timeoutAnswer != nil {
		if ok := <-timeoutAnswer; !ok {
			return nil, tts.NewError(tts.ErrUserAbort, "sync", "timeout checkpoint")
		}
	}

	if float64(res.Skipped)/float64(res.Total) > s.opts.SkipRatio {
		if !s.prompter.ConfirmSkipped(res.Skipped, res.Total) {
			return nil, tts.NewError(tts.ErrUserAbort, "sync", "skip checkpoint").
				WithContext("skipped", res.Skipped)
		}
	}

	if out.Len() == 0 {
		return nil, tts.NewError(tts.ErrEmptyOutput, "sync", "assemble")
	}

	res.Budget = seconds(cues[len(cues)-1].End)
	s.observer.OnProgress(tts.Progress{Percent: 100, Done: len(cues), Total: len(cues), Skipped: res.Skipped, Stage: tts.StageFit})
	fit, err := FitToBudget(ctx, out, res.Budget, s.opts.Speed, s.opts.MaxSpeed, s.opts.SpeedStep, s.cancelled)
	if err != nil {
		return nil, err
	}
	res.Audio, res.Speed, res.Fits = fit.Audio, fit.Speed, fit.Fits
	if !fit.Fits {
		s.warn(res, fmt.Sprintf("track is %s over the subtitle length at speed %.1f",
			(fit.Audio.Duration()-res.Budget).Round(time.Millisecond), fit.Speed))
	}

	log.Info("subtitle track rendered",
		"cues", res.Total, "skipped", res.Skipped, "speed", res.Speed,
		"duration", res.Audio.Duration().Round(time.Millisecond), "budget", res.Budget)
	return res, nil
}

// renderCue walks the per-cue states. A nil buffer without error means the
// cue was skipped.
func (s *Synchronizer) renderCue(ctx context.Context, i int, cue subtitle.Cue) (*audio.Buffer, error) {
	state := tryFull
	var buf *audio.Buffer
	for state != done && state != skip {
		var err error
		switch state {
		case tryFull:
			buf, err = s.full(ctx, cue.Text)
		case tryReduced:
			buf, err = s.reduced(ctx, cue.Text)
		}
		if err != nil && (errors.Is(err, tts.ErrUserAbort) || ctx.Err() != nil) {
			return nil, s.checkAbort(ctx)
		}
		if err != nil {
			e := tts.NewError(err, "sync", "synthesize "+state.String()).
				WithCue(i).
				WithSeverity(tts.SeverityWarning)
			log.Warn("cue synthesis failed", "attempt", state, "err", e)
			if state == tryFull {
				state = tryReduced
			} else {
				state = skip
			}
			continue
		}
		state = done
	}
	if state == skip {
		return nil, nil
	}
	return buf, nil
}

// full runs normalization, segmentation and one engine call per chunk, then
// stretches the cue to the current speed. A cue with no speakable text
// yields an empty buffer.
func (s *Synchronizer) full(ctx context.Context, text string) (*audio.Buffer, error) {
	chunks := s.opts.Segmenter.Split(normalize.Normalize(text, s.opts.Dictionary))

	var results []sentence.Result
	for _, c := range chunks {
		if s.cancelled() {
			return nil, tts.ErrUserAbort
		}
		if c.Empty() {
			continue
		}
		b, err := s.engine.Synthesize(ctx, c.Text, s.opts.Voice)
		if err != nil {
			return nil, err
		}
		results = append(results, sentence.Result{Index: c.Index, Audio: b})
	}
	if len(results) == 0 {
		// Nothing left after cleanup: a zero-length cue, not a failure.
		return audio.New(s.opts.SampleRate), nil
	}
	return sentence.Assemble(chunks, results, s.opts.SampleRate).Stretch(s.opts.Speed), nil
}

// reduced sends the structurally cleaned cue in one call at normal speed.
func (s *Synchronizer) reduced(ctx context.Context, text string) (*audio.Buffer, error) {
	text = strings.TrimSpace(normalize.Structural(text))
	if text == "" {
		return nil, errNothingToSay
	}
	if s.cancelled() {
		return nil, tts.ErrUserAbort
	}
	b, err := s.engine.Synthesize(ctx, text, s.opts.Voice)
	if err != nil {
		return nil, err
	}
	if b.Len() == 0 {
		return nil, tts.ErrEmptyOutput
	}
	return b, nil
}

func (s *Synchronizer) checkAbort(ctx context.Context) error {
	if s.cancelled() {
		return tts.NewError(tts.ErrUserAbort, "sync", "cancel")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", tts.ErrUserAbort, err)
	}
	return nil
}

func (s *Synchronizer) warn(res *Result, msg string) {
	res.Warnings = append(res.Warnings, msg)
	s.observer.OnWarning(msg)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
