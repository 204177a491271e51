package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
	"github.com/dgnsrekt/narrator/tts/normalize"
	"github.com/dgnsrekt/narrator/tts/sentence"
	ttssync "github.com/dgnsrekt/narrator/tts/sync"
	"github.com/gofrs/flock"
)

const lockFile = "narrator.lock"

// Controller runs one job at a time on a background goroutine. Progress,
// state and cancellation are safe to use from other goroutines while the job
// runs.
type Controller struct {
	session  *Session
	observer tts.ProgressObserver
	prompter tts.Prompter
	exporter audio.Exporter
	machine  *tts.StateMachine

	running   atomic.Bool
	cancelled atomic.Bool
	progress  atomic.Value // tts.Progress

	mu     sync.Mutex
	done   chan struct{}
	result *Result
	err    error
}

// NewController creates a controller for session. A nil observer or
// prompter defaults to a no-op observer and a prompter that always
// continues.
func NewController(session *Session, observer tts.ProgressObserver, prompter tts.Prompter) *Controller {
	if observer == nil {
		observer = tts.NopObserver{}
	}
	if prompter == nil {
		prompter = tts.AutoPrompter{Answer: true}
	}
	cfg := session.Config()
	c := &Controller{
		session:  session,
		observer: observer,
		prompter: prompter,
		exporter: audio.Exporter{FFmpegBinary: cfg.FFmpeg, Bitrate: cfg.Bitrate},
		machine:  tts.NewStateMachine(),
	}
	c.progress.Store(tts.Progress{})
	return c
}

// State returns the job state.
func (c *Controller) State() tts.StateType { return c.machine.Current() }

// OnState registers fn to run whenever the job enters state.
func (c *Controller) OnState(state tts.StateType, fn func()) { c.machine.OnEnter(state, fn) }

// Progress returns the latest progress report. It never blocks.
func (c *Controller) Progress() tts.Progress { return c.progress.Load().(tts.Progress) }

// Running reports whether a job is in flight.
func (c *Controller) Running() bool { return c.running.Load() }

// Cancel asks the running job to stop before its next chunk or cue. The
// engine call in flight is allowed to finish and its audio is discarded.
func (c *Controller) Cancel() { c.cancelled.Store(true) }

// Start begins job and returns immediately. Only one job may run at a time,
// in this process and across processes sharing the data directory.
func (c *Controller) Start(ctx context.Context, job *Job) error {
	if job == nil {
		return tts.ErrNoInput
	}
	if !c.running.CompareAndSwap(false, true) {
		return tts.ErrJobRunning
	}

	lock, err := c.acquireLock()
	if err != nil {
		c.running.Store(false)
		return err
	}

	c.mu.Lock()
	c.done = make(chan struct{})
	c.result, c.err = nil, nil
	done := c.done
	c.mu.Unlock()

	c.cancelled.Store(false)
	c.progress.Store(tts.Progress{Stage: tts.StagePrepare})
	c.machine.Transition(tts.StatePreparing)

	go func() {
		res, err := c.run(ctx, job)

		if lock != nil {
			if uerr := lock.Unlock(); uerr != nil {
				log.Warn("failed to release job lock", "err", uerr)
			}
		}
		c.mu.Lock()
		c.result, c.err = res, err
		c.mu.Unlock()
		c.running.Store(false)
		close(done)
	}()
	return nil
}

// Wait blocks until the current job ends and returns its outcome.
func (c *Controller) Wait() (*Result, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil, errors.New("no job started")
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.err
}

// Run starts job and waits for it.
func (c *Controller) Run(ctx context.Context, job *Job) (*Result, error) {
	if err := c.Start(ctx, job); err != nil {
		return nil, err
	}
	return c.Wait()
}

func (c *Controller) acquireLock() (*flock.Flock, error) {
	dir := c.session.Config().DataDir
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire job lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another narrator process holds %s", tts.ErrJobRunning, lock.Path())
	}
	return lock, nil
}

func (c *Controller) run(ctx context.Context, job *Job) (*Result, error) {
	started := time.Now()
	log.Info("job started", "id", job.ID, "mode", job.Mode, "output", job.Output)

	tmp, err := os.MkdirTemp("", "narrator-")
	if err != nil {
		return nil, c.fail(tts.NewError(err, "pipeline", "create temp dir"))
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			log.Warn("failed to remove temp dir", "dir", tmp, "err", err)
		}
	}()
	ctx = tts.WithTempDir(ctx, tmp)

	var res *Result
	switch job.Mode {
	case ModeText:
		res, err = c.runText(ctx, job)
	case ModeSubtitle:
		res, err = c.runSubtitle(ctx, job)
	default:
		err = fmt.Errorf("%w: unknown mode %q", tts.ErrNoInput, job.Mode)
	}
	if err != nil {
		return nil, c.fail(err)
	}

	if err := c.checkCancel(ctx); err != nil {
		return nil, c.fail(err)
	}
	c.machine.Transition(tts.StateExporting)
	c.report(tts.Progress{Percent: 100, Done: res.Total, Total: res.Total, Skipped: res.Skipped, Stage: tts.StageExport, Message: job.Output})
	if job.Output != "" {
		exporter := c.exporter
		exporter.TempDir = tmp
		if err := exporter.Export(ctx, res.Audio, job.Output); err != nil {
			return nil, c.fail(tts.NewError(err, "pipeline", "export"))
		}
		if err := c.session.Remember(ctx, res); err != nil {
			log.Warn("failed to record history", "err", err)
		}
	}

	res.Elapsed = time.Since(started)
	c.machine.Transition(tts.StateDone)
	log.Info("job finished", "id", job.ID, "duration", res.Duration.Round(time.Millisecond),
		"speed", res.Speed, "skipped", res.Skipped, "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

func (c *Controller) runText(ctx context.Context, job *Job) (*Result, error) {
	cfg := c.session.Config()
	text := job.Text
	if job.Markdown {
		plain, err := sentence.FromMarkdown([]byte(text))
		if err != nil {
			return nil, tts.NewError(err, "pipeline", "read markdown")
		}
		text = plain
	}

	chunks := (&sentence.Segmenter{Threshold: cfg.Segment.Threshold, MaxChunk: cfg.Segment.MaxChunk}).
		Split(normalize.Paragraphs(text, c.session.Dictionary()))
	if len(chunks) == 0 {
		return nil, tts.ErrNoInput
	}
	c.machine.Transition(tts.StateSynthesizing)

	voice := c.voice(job)
	speed := cfg.ClampSpeed(c.speed(job), false)
	res := &Result{JobID: job.ID, Mode: ModeText, Output: job.Output, Total: len(chunks), Speed: speed}

	var results []sentence.Result
	for i, chunk := range chunks {
		if err := c.checkCancel(ctx); err != nil {
			return nil, err
		}
		if !chunk.Empty() {
			buf, err := c.synthesizeChunk(ctx, chunk, voice)
			if err != nil {
				res.Skipped++
				c.warn(res, fmt.Sprintf("chunk %d skipped: %v", i+1, err))
			} else {
				results = append(results, sentence.Result{Index: chunk.Index, Audio: buf})
			}
		}
		c.report(tts.Progress{
			Percent: float64(i+1) / float64(len(chunks)) * 100,
			Done:    i + 1,
			Total:   len(chunks),
			Skipped: res.Skipped,
			Stage:   tts.StageSynthesize,
		})
	}
	if len(results) == 0 {
		return nil, tts.NewError(tts.ErrEmptyOutput, "pipeline", "synthesize")
	}

	buf := sentence.Assemble(chunks, results, cfg.SampleRate).Stretch(speed)
	if job.Budget > 0 {
		c.machine.Transition(tts.StateFitting)
		c.report(tts.Progress{Percent: 100, Done: len(chunks), Total: len(chunks), Skipped: res.Skipped, Stage: tts.StageFit})
		fit, err := ttssync.FitToBudget(ctx, buf, job.Budget, speed, cfg.MaxSpeed(false), cfg.SpeedStep, c.cancelled.Load)
		if err != nil {
			return nil, err
		}
		buf, res.Speed = fit.Audio, fit.Speed
		if !fit.Fits {
			c.warn(res, fmt.Sprintf("text is %s over the requested length at speed %.1f",
				(buf.Duration()-job.Budget).Round(time.Millisecond), fit.Speed))
		}
		res.Budget = job.Budget
	}

	res.Audio = buf
	res.Duration = buf.Duration()
	return res, nil
}

// synthesizeChunk tries a chunk twice before giving up on it.
func (c *Controller) synthesizeChunk(ctx context.Context, chunk sentence.Chunk, voice string) (*audio.Buffer, error) {
	engine := c.session.Engine()
	buf, err := engine.Synthesize(ctx, chunk.Text, voice)
	if err == nil {
		return buf, nil
	}
	log.Warn("chunk synthesis failed, retrying", "err", tts.NewError(err, "pipeline", "synthesize").WithCue(chunk.Index))
	if cerr := c.checkCancel(ctx); cerr != nil {
		return nil, cerr
	}
	return engine.Synthesize(ctx, chunk.Text, voice)
}

func (c *Controller) runSubtitle(ctx context.Context, job *Job) (*Result, error) {
	if len(job.Cues) == 0 {
		return nil, tts.ErrNoCues
	}
	cfg := c.session.Config()
	c.machine.Transition(tts.StateSynthesizing)

	opts := ttssync.OptionsFromConfig(&cfg)
	opts.Voice = c.voice(job)
	opts.Speed = cfg.ClampSpeed(c.speed(job), true)
	opts.Dictionary = c.session.Dictionary()

	observer := tts.ObserverFuncs{
		Progress: func(p tts.Progress) {
			if p.Stage == tts.StageFit {
				c.machine.Transition(tts.StateFitting)
			}
			c.report(p)
		},
		Warning: c.observer.OnWarning,
	}
	s := ttssync.New(c.session.Engine(), opts, observer, c.prompter)
	s.SetCancel(c.cancelled.Load)

	out, err := s.Run(ctx, job.Cues)
	if err != nil {
		return nil, err
	}
	return &Result{
		JobID:    job.ID,
		Mode:     ModeSubtitle,
		Output:   job.Output,
		Audio:    out.Audio,
		Duration: out.Audio.Duration(),
		Speed:    out.Speed,
		Budget:   out.Budget,
		Skipped:  out.Skipped,
		Total:    out.Total,
		Warnings: out.Warnings,
	}, nil
}

func (c *Controller) voice(job *Job) string {
	if job.Voice != "" {
		return job.Voice
	}
	return c.session.Config().Voice
}

func (c *Controller) speed(job *Job) float64 {
	if job.Speed > 0 {
		return job.Speed
	}
	return c.session.Config().Speed
}

func (c *Controller) checkCancel(ctx context.Context) error {
	if c.cancelled.Load() {
		return tts.NewError(tts.ErrUserAbort, "pipeline", "cancel")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", tts.ErrUserAbort, err)
	}
	return nil
}

func (c *Controller) report(p tts.Progress) {
	c.progress.Store(p)
	c.observer.OnProgress(p)
}

func (c *Controller) warn(res *Result, msg string) {
	res.Warnings = append(res.Warnings, msg)
	c.observer.OnWarning(msg)
}

// fail moves the state machine to its terminal state for err.
func (c *Controller) fail(err error) error {
	if errors.Is(err, tts.ErrUserAbort) {
		c.machine.Transition(tts.StateAborted)
		log.Info("job aborted", "err", err)
	} else {
		c.machine.Transition(tts.StateFailed)
		log.Error("job failed", "err", err)
	}
	return err
}
