package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/internal/history"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/engines/mock"
	"github.com/dgnsrekt/narrator/tts/subtitle"
	"github.com/gofrs/flock"
)

func testSession(t *testing.T, engine tts.Engine) *Session {
	t.Helper()
	cfg := tts.DefaultConfig()
	cfg.Engine = tts.EngineMock
	cfg.DataDir = t.TempDir()

	hist, err := history.Open(filepath.Join(cfg.DataDir, historyFile))
	if err != nil {
		t.Fatal(err)
	}
	s := NewSession(cfg, engine, nil, hist)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fixedEngine(d time.Duration) *mock.MockEngine {
	e := mock.New()
	e.SetDuration(d)
	return e
}

func TestTextJob(t *testing.T) {
	engine := fixedEngine(time.Second)
	session := testSession(t, engine)
	c := NewController(session, nil, nil)

	out := filepath.Join(t.TempDir(), "out", "speech.wav")
	res, err := c.Run(context.Background(), NewTextJob("Привет. Пока.", out))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Two chunks with a long pause between them.
	if res.Duration != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", res.Duration)
	}
	if res.Total != 2 || res.Skipped != 0 || res.Speed != 1 {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
	if c.State() != tts.StateDone {
		t.Errorf("State() = %v, want done", c.State())
	}
	if p := c.Progress(); p.Percent != 100 || p.Stage != tts.StageExport {
		t.Errorf("Progress() = %+v", p)
	}

	entries, err := session.History().List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Path != out || entries[0].Mode != "text" {
		t.Errorf("history = %+v", entries)
	}
}

func TestTextJobWithoutOutput(t *testing.T) {
	session := testSession(t, fixedEngine(time.Second))
	res, err := NewController(session, nil, nil).Run(context.Background(), NewTextJob("Раз.", ""))
	if err != nil {
		t.Fatal(err)
	}
	if res.Audio.Duration() != time.Second {
		t.Errorf("Duration = %v, want 1s", res.Audio.Duration())
	}
	entries, _ := session.History().List(context.Background())
	if len(entries) != 0 {
		t.Errorf("history = %v, want nothing recorded", entries)
	}
}

func TestTextJobBudget(t *testing.T) {
	session := testSession(t, fixedEngine(time.Second))
	job := NewTextJob("Раз. Два.", "")
	job.Budget = 2 * time.Second

	res, err := NewController(session, nil, nil).Run(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	if res.Speed <= 1 {
		t.Errorf("Speed = %v, want raised", res.Speed)
	}
	if !(res.Duration <= job.Budget || res.Speed == 2) {
		t.Errorf("duration %v over budget below the cap", res.Duration)
	}
}

func TestTextJobAppliesDictionary(t *testing.T) {
	engine := fixedEngine(time.Second)
	session := testSession(t, engine)
	if err := session.SetEntry("привет", "здравствуйте"); err != nil {
		t.Fatal(err)
	}

	if _, err := NewController(session, nil, nil).Run(context.Background(), NewTextJob("привет мир", "")); err != nil {
		t.Fatal(err)
	}
	calls := engine.Calls()
	if len(calls) != 1 || !strings.Contains(calls[0], "здравствуйте") {
		t.Errorf("Calls() = %q", calls)
	}
}

func TestTextJobRetriesThenSkipsChunk(t *testing.T) {
	engine := fixedEngine(time.Second)
	engine.FailOn("Два", errors.New("engine crashed"))
	var warnings []string
	obs := tts.ObserverFuncs{Warning: func(msg string) { warnings = append(warnings, msg) }}

	res, err := NewController(testSession(t, engine), obs, nil).Run(context.Background(), NewTextJob("Раз. Два. Три.", ""))
	if err != nil {
		t.Fatal(err)
	}
	if engine.CallCount() != 4 {
		t.Errorf("engine calls = %d, want 4", engine.CallCount())
	}
	if res.Skipped != 1 || len(warnings) != 1 {
		t.Errorf("skipped = %d, warnings = %v", res.Skipped, warnings)
	}
}

func TestEmptyTextJob(t *testing.T) {
	c := NewController(testSession(t, mock.New()), nil, nil)
	_, err := c.Run(context.Background(), NewTextJob("   \n ", ""))
	if !errors.Is(err, tts.ErrNoInput) {
		t.Errorf("Run() error = %v, want ErrNoInput", err)
	}
	if c.State() != tts.StateFailed {
		t.Errorf("State() = %v, want failed", c.State())
	}
}

func TestSubtitleJob(t *testing.T) {
	session := testSession(t, fixedEngine(2*time.Second))
	cues := []subtitle.Cue{
		{Index: 1, Start: 0, End: 2, Text: "Привет."},
		{Index: 2, Start: 2, End: 4, Text: "Пока."},
	}
	out := filepath.Join(t.TempDir(), "dub.wav")

	res, err := NewController(session, nil, nil).Run(context.Background(), NewSubtitleJob(cues, out))
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != ModeSubtitle || res.Duration != 4*time.Second || res.Total != 2 {
		t.Errorf("result = %+v", res)
	}

	_, err = NewController(session, nil, nil).Run(context.Background(), NewSubtitleJob(nil, out))
	if !errors.Is(err, tts.ErrNoCues) {
		t.Errorf("empty track error = %v, want ErrNoCues", err)
	}
}

func TestSecondJobRejected(t *testing.T) {
	engine := fixedEngine(time.Second)
	engine.SetDelay(100 * time.Millisecond)
	c := NewController(testSession(t, engine), nil, nil)

	if err := c.Start(context.Background(), NewTextJob("Раз. Два. Три.", "")); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(context.Background(), NewTextJob("Ещё.", "")); !errors.Is(err, tts.ErrJobRunning) {
		t.Errorf("second Start() error = %v, want ErrJobRunning", err)
	}

	c.Cancel()
	if _, err := c.Wait(); !errors.Is(err, tts.ErrUserAbort) {
		t.Errorf("Wait() error = %v, want ErrUserAbort", err)
	}
	if c.State() != tts.StateAborted || c.Running() {
		t.Errorf("State() = %v, Running() = %v", c.State(), c.Running())
	}

	// The controller accepts a new job afterwards.
	engine.SetDelay(0)
	if _, err := c.Run(context.Background(), NewTextJob("Ещё.", "")); err != nil {
		t.Errorf("Run() after abort error = %v", err)
	}
}

func TestLockHeldByAnotherProcess(t *testing.T) {
	session := testSession(t, mock.New())
	lock := flock.New(filepath.Join(session.Config().DataDir, lockFile))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}
	defer lock.Unlock()

	c := NewController(session, nil, nil)
	if err := c.Start(context.Background(), NewTextJob("Раз.", "")); !errors.Is(err, tts.ErrJobRunning) {
		t.Errorf("Start() error = %v, want ErrJobRunning", err)
	}
	if c.Running() {
		t.Error("Running() after a rejected start")
	}
}

func TestCancelBetweenChunks(t *testing.T) {
	engine := fixedEngine(time.Second)
	var c *Controller
	obs := tts.ObserverFuncs{Progress: func(p tts.Progress) {
		if p.Stage == tts.StageSynthesize && p.Done == 1 {
			c.Cancel()
		}
	}}
	c = NewController(testSession(t, engine), obs, nil)

	_, err := c.Run(context.Background(), NewTextJob("Раз. Два. Три. Четыре.", ""))
	if !errors.Is(err, tts.ErrUserAbort) {
		t.Fatalf("Run() error = %v, want ErrUserAbort", err)
	}
	if engine.CallCount() != 1 {
		t.Errorf("engine calls = %d, want 1", engine.CallCount())
	}
}

func TestCancelDuringFit(t *testing.T) {
	engine := fixedEngine(time.Second)
	var c *Controller
	obs := tts.ObserverFuncs{Progress: func(p tts.Progress) {
		if p.Stage == tts.StageFit {
			c.Cancel()
		}
	}}
	c = NewController(testSession(t, engine), obs, nil)

	job := NewTextJob("Раз. Два. Три.", "")
	job.Budget = time.Second
	_, err := c.Run(context.Background(), job)
	if !errors.Is(err, tts.ErrUserAbort) {
		t.Fatalf("Run() error = %v, want ErrUserAbort", err)
	}
	if c.State() != tts.StateAborted {
		t.Errorf("State() = %s, want aborted", c.State())
	}
}

func TestProgressReportsSkipped(t *testing.T) {
	engine := fixedEngine(time.Second)
	engine.FailOn("Два", errors.New("engine crashed"))
	c := NewController(testSession(t, engine), nil, nil)

	if _, err := c.Run(context.Background(), NewTextJob("Раз. Два. Три.", "")); err != nil {
		t.Fatal(err)
	}
	if got := c.Progress().Skipped; got != 1 {
		t.Errorf("Progress().Skipped = %d, want 1", got)
	}
}

func TestTempDirRemoved(t *testing.T) {
	engine := fixedEngine(time.Second)
	session := testSession(t, engine)
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	var seen string
	engine.FailWhen(func(string) bool {
		entries, _ := os.ReadDir(tmp)
		if len(entries) == 1 {
			seen = entries[0].Name()
		}
		return false
	}, nil)

	if _, err := NewController(session, nil, nil).Run(context.Background(), NewTextJob("Раз.", "")); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(seen, "narrator-") {
		t.Errorf("job temp dir not created under TMPDIR, saw %q", seen)
	}
	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Errorf("temp dir left behind: %v", entries)
	}
}

func TestWaitWithoutJob(t *testing.T) {
	c := NewController(testSession(t, mock.New()), nil, nil)
	if _, err := c.Wait(); err == nil {
		t.Error("Wait() without a job should fail")
	}
}
