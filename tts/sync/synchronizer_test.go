package sync

import (
	"context"
	"errors"
	"math"
	"strings"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/engines/mock"
	"github.com/dgnsrekt/narrator/tts/subtitle"
)

type recorder struct {
	mu       gosync.Mutex
	progress []tts.Progress
	warnings []string
}

func (r *recorder) OnProgress(p tts.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recorder) OnWarning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
}

type countingPrompter struct {
	answer  bool
	skipped atomic.Int32
	timeout atomic.Int32
}

func (p *countingPrompter) ConfirmSkipped(int, int) bool {
	p.skipped.Add(1)
	return p.answer
}

func (p *countingPrompter) ConfirmTimeout(time.Duration) bool {
	p.timeout.Add(1)
	return p.answer
}

func fixedEngine(d time.Duration) *mock.MockEngine {
	e := mock.New()
	e.SetDuration(d)
	return e
}

func TestContiguousCuesHaveNoGap(t *testing.T) {
	engine := fixedEngine(2 * time.Second)
	prompter := &countingPrompter{answer: true}
	cues := []subtitle.Cue{
		{Index: 1, Start: 0, End: 2, Text: "Привет."},
		{Index: 2, Start: 2, End: 4, Text: "Пока."},
	}

	res, err := New(engine, DefaultOptions(), nil, prompter).Run(context.Background(), cues)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := res.Audio.Duration(); got != 4*time.Second {
		t.Errorf("Duration() = %v, want 4s", got)
	}
	if res.Speed != 1 || !res.Fits || res.Skipped != 0 {
		t.Errorf("result = speed %v fits %v skipped %d", res.Speed, res.Fits, res.Skipped)
	}
	if prompter.skipped.Load() != 0 {
		t.Error("ConfirmSkipped() asked with nothing skipped")
	}
}

func TestGapsBecomeSilence(t *testing.T) {
	engine := fixedEngine(time.Second)
	cues := []subtitle.Cue{
		{Index: 1, Start: 1, End: 2, Text: "Раз."},
		{Index: 2, Start: 5, End: 6, Text: "Два."},
	}

	res, err := New(engine, DefaultOptions(), nil, nil).Run(context.Background(), cues)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Audio.Duration(); got != 6*time.Second {
		t.Errorf("Duration() = %v, want 6s", got)
	}
	if res.Budget != 6*time.Second {
		t.Errorf("Budget = %v, want 6s", res.Budget)
	}
}

func TestAdaptiveSpeed(t *testing.T) {
	tests := []struct {
		name      string
		secondEnd float64
		wantSpeed float64
		wantFits  bool
	}{
		{"fits after one step", 3.7, 1.1, true},
		{"stops at cap", 2, 1.4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := fixedEngine(2 * time.Second)
			obs := &recorder{}
			cues := []subtitle.Cue{
				{Index: 1, Start: 0, End: tt.secondEnd / 2, Text: "Раз."},
				{Index: 2, Start: tt.secondEnd / 2, End: tt.secondEnd, Text: "Два."},
			}

			res, err := New(engine, DefaultOptions(), obs, nil).Run(context.Background(), cues)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(res.Speed-tt.wantSpeed) > 1e-9 {
				t.Errorf("Speed = %v, want %v", res.Speed, tt.wantSpeed)
			}
			if res.Fits != tt.wantFits {
				t.Errorf("Fits = %v, want %v", res.Fits, tt.wantFits)
			}
			if !(res.Audio.Duration() <= res.Budget || res.Speed == 1.4) {
				t.Errorf("duration %v over budget %v below the cap", res.Audio.Duration(), res.Budget)
			}
			if !tt.wantFits && len(obs.warnings) != 1 {
				t.Errorf("warnings = %v, want one over-budget warning", obs.warnings)
			}
			// Fitting re-stretches; it never synthesizes again.
			if engine.CallCount() != 2 {
				t.Errorf("engine calls = %d, want 2", engine.CallCount())
			}
		})
	}
}

func TestReducedPipelineRunsAtNormalSpeed(t *testing.T) {
	engine := fixedEngine(time.Second)
	// Only the structurally cleaned text keeps the digit.
	engine.FailWhen(func(text string) bool { return !strings.ContainsRune(text, '5') }, errors.New("rejected"))

	opts := DefaultOptions()
	opts.Speed = 1.2
	cues := []subtitle.Cue{{Index: 1, Start: 0, End: 1, Text: "Глава 5"}}

	res, err := New(engine, opts, nil, nil).Run(context.Background(), cues)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	calls := engine.Calls()
	if len(calls) != 2 || calls[1] != "Глава 5" {
		t.Errorf("Calls() = %q", calls)
	}
	if got := res.Audio.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s from the unstretched retry", got)
	}
	if res.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", res.Skipped)
	}
}

func skipCues() []subtitle.Cue {
	return []subtitle.Cue{
		{Index: 1, Start: 0, End: 1, Text: "Раз."},
		{Index: 2, Start: 1, End: 2, Text: "Ошибка."},
		{Index: 3, Start: 2, End: 3, Text: "Два."},
		{Index: 4, Start: 3, End: 4, Text: "Три."},
		{Index: 5, Start: 4, End: 5, Text: "Четыре."},
	}
}

func TestSkippedCues(t *testing.T) {
	tests := []struct {
		name    string
		answer  bool
		wantErr error
	}{
		{"continue", true, nil},
		{"abort", false, tts.ErrUserAbort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := fixedEngine(time.Second)
			engine.FailOn("шибк", errors.New("engine crashed"))
			prompter := &countingPrompter{answer: tt.answer}
			obs := &recorder{}

			res, err := New(engine, DefaultOptions(), obs, prompter).Run(context.Background(), skipCues())
			if prompter.skipped.Load() != 1 {
				t.Errorf("ConfirmSkipped() asked %d times, want 1", prompter.skipped.Load())
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.Skipped != 1 {
				t.Errorf("Skipped = %d, want 1", res.Skipped)
			}
			// The skipped cue keeps its nominal length in the timeline.
			if got := res.Audio.Duration(); got != 5*time.Second {
				t.Errorf("Duration() = %v, want 5s", got)
			}
			if len(obs.warnings) != 1 {
				t.Errorf("warnings = %v", obs.warnings)
			}
		})
	}
}

func TestEmptyCueIsNotSkipped(t *testing.T) {
	engine := fixedEngine(time.Second)
	prompter := &countingPrompter{answer: true}
	obs := &recorder{}
	cues := []subtitle.Cue{
		{Index: 1, Start: 0, End: 1, Text: "Раз."},
		{Index: 2, Start: 1, End: 2, Text: "Два."},
		{Index: 3, Start: 2, End: 3, Text: ""},
		{Index: 4, Start: 3, End: 4, Text: "Четыре."},
		{Index: 5, Start: 4, End: 5, Text: "Пять."},
	}

	res, err := New(engine, DefaultOptions(), obs, prompter).Run(context.Background(), cues)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", res.Skipped)
	}
	if prompter.skipped.Load() != 0 {
		t.Error("ConfirmSkipped() asked for an empty cue")
	}
	if engine.CallCount() != 4 {
		t.Errorf("engine calls = %d, want 4", engine.CallCount())
	}
	if len(obs.warnings) != 0 {
		t.Errorf("warnings = %v", obs.warnings)
	}
	// The empty cue ends where it starts; the next gap restores the timeline.
	if got := res.Audio.Duration(); got != 5*time.Second {
		t.Errorf("Duration() = %v, want 5s", got)
	}
}

func TestProgressCarriesSkipped(t *testing.T) {
	engine := fixedEngine(time.Second)
	engine.FailOn("шибк", errors.New("engine crashed"))
	obs := &recorder{}

	if _, err := New(engine, DefaultOptions(), obs, nil).Run(context.Background(), skipCues()); err != nil {
		t.Fatal(err)
	}
	last := obs.progress[len(obs.progress)-1]
	if last.Skipped != 1 {
		t.Errorf("final Skipped = %d, want 1", last.Skipped)
	}
	if obs.progress[0].Skipped > last.Skipped {
		t.Errorf("skipped count went down: %+v", obs.progress)
	}
}

func TestSkipRatioAtThreshold(t *testing.T) {
	engine := fixedEngine(time.Second)
	engine.FailOn("шибк", errors.New("engine crashed"))
	prompter := &countingPrompter{answer: false}

	cues := skipCues()
	for i := range 5 {
		cues = append(cues, subtitle.Cue{Index: 6 + i, Start: float64(5 + i), End: float64(6 + i), Text: "Ещё."})
	}
	// 1 of 10 is not above the ratio.
	if _, err := New(engine, DefaultOptions(), nil, prompter).Run(context.Background(), cues); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if prompter.skipped.Load() != 0 {
		t.Error("ConfirmSkipped() asked at exactly the threshold")
	}
}

func TestCancelStopsBeforeNextCue(t *testing.T) {
	engine := fixedEngine(100 * time.Millisecond)
	s := New(engine, DefaultOptions(), nil, nil)
	s.SetCancel(func() bool { return engine.CallCount() >= 2 })

	_, err := s.Run(context.Background(), skipCues())
	if !errors.Is(err, tts.ErrUserAbort) {
		t.Fatalf("Run() error = %v, want ErrUserAbort", err)
	}
	if engine.CallCount() != 2 {
		t.Errorf("engine calls = %d, want 2", engine.CallCount())
	}
}

func TestCancelDuringFit(t *testing.T) {
	engine := fixedEngine(2 * time.Second)
	s := New(engine, DefaultOptions(), nil, nil)
	s.SetCancel(func() bool { return engine.CallCount() >= len(skipCues()) })

	_, err := s.Run(context.Background(), skipCues())
	if !errors.Is(err, tts.ErrUserAbort) {
		t.Fatalf("Run() error = %v, want ErrUserAbort", err)
	}
	if engine.CallCount() != len(skipCues()) {
		t.Errorf("engine calls = %d, want every cue rendered", engine.CallCount())
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(fixedEngine(time.Second), DefaultOptions(), nil, nil).Run(ctx, skipCues())
	if !errors.Is(err, tts.ErrUserAbort) || !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v", err)
	}
}

func TestTimeoutCheckpoint(t *testing.T) {
	tests := []struct {
		name    string
		answer  bool
		wantErr bool
	}{
		{"continue", true, false},
		{"abort", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompter := &countingPrompter{answer: tt.answer}
			opts := DefaultOptions()
			opts.PromptAfter = 2 * time.Minute

			s := New(fixedEngine(time.Second), opts, nil, prompter)
			var ticks atomic.Int64
			base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			s.now = func() time.Time {
				return base.Add(time.Duration(ticks.Add(1)-1) * time.Minute)
			}

			_, err := s.Run(context.Background(), skipCues()[2:])
			if tt.wantErr != errors.Is(err, tts.ErrUserAbort) {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := prompter.timeout.Load(); got != 1 {
				t.Errorf("ConfirmTimeout() asked %d times, want 1", got)
			}
		})
	}
}

func TestEmptyOutput(t *testing.T) {
	engine := mock.New()
	engine.SetFailure(errors.New("down"))
	cues := []subtitle.Cue{{Index: 1, Start: 0, End: 0, Text: "Раз."}}

	_, err := New(engine, DefaultOptions(), nil, nil).Run(context.Background(), cues)
	if !errors.Is(err, tts.ErrEmptyOutput) {
		t.Errorf("Run() error = %v, want ErrEmptyOutput", err)
	}
}

func TestNoCues(t *testing.T) {
	_, err := New(mock.New(), DefaultOptions(), nil, nil).Run(context.Background(), nil)
	if !errors.Is(err, tts.ErrNoCues) {
		t.Errorf("Run() error = %v, want ErrNoCues", err)
	}
}

func TestProgressReports(t *testing.T) {
	obs := &recorder{}
	_, err := New(fixedEngine(time.Second), DefaultOptions(), obs, nil).Run(context.Background(), skipCues()[:2])
	if err != nil {
		t.Fatal(err)
	}
	if len(obs.progress) != 3 {
		t.Fatalf("progress reports = %d, want 3", len(obs.progress))
	}
	if obs.progress[0].Percent != 50 || obs.progress[1].Percent != 100 {
		t.Errorf("progress = %+v", obs.progress)
	}
	if obs.progress[2].Stage != tts.StageFit {
		t.Errorf("last stage = %s, want fit", obs.progress[2].Stage)
	}
}
