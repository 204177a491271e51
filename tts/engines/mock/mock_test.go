package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/tts"
)

func TestSynthesizeEstimate(t *testing.T) {
	engine := New()

	tests := []struct {
		text string
		want time.Duration
	}{
		{"", 400 * time.Millisecond},
		{"один", 400 * time.Millisecond},
		{"раз два три", 1200 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			buf, err := engine.Synthesize(context.Background(), tt.text, "2")
			if err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			if got := buf.Duration(); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSynthesizeFixedDuration(t *testing.T) {
	engine := New()
	engine.SetDuration(2 * time.Second)

	buf, err := engine.Synthesize(context.Background(), "что угодно", "2")
	if err != nil {
		t.Fatal(err)
	}
	if buf.Duration() != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", buf.Duration())
	}
	if buf.Samples[100] == 0 && buf.Samples[101] == 0 {
		t.Error("mock audio should not be silent")
	}
}

func TestSynthesizeFailure(t *testing.T) {
	engine := New()
	boom := errors.New("boom")
	engine.FailOn("плохо", boom)

	if _, err := engine.Synthesize(context.Background(), "хорошо", "2"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	_, err := engine.Synthesize(context.Background(), "очень плохо", "2")
	if !errors.Is(err, tts.ErrSynthesis) || !errors.Is(err, boom) {
		t.Errorf("error = %v, want ErrSynthesis wrapping boom", err)
	}

	engine.ClearFailure()
	if _, err := engine.Synthesize(context.Background(), "очень плохо", "2"); err != nil {
		t.Errorf("ClearFailure() did not reset: %v", err)
	}

	engine.SetFailure(boom)
	if _, err := engine.Synthesize(context.Background(), "хорошо", "2"); err == nil {
		t.Error("SetFailure() should fail every call")
	}
}

func TestCalls(t *testing.T) {
	engine := New()
	for _, text := range []string{"а", "б", "в"} {
		_, _ = engine.Synthesize(context.Background(), text, "2")
	}
	if engine.CallCount() != 3 {
		t.Errorf("CallCount() = %d, want 3", engine.CallCount())
	}
	calls := engine.Calls()
	if calls[0] != "а" || calls[2] != "в" {
		t.Errorf("Calls() = %v", calls)
	}
}

func TestSynthesizeHonoursContext(t *testing.T) {
	engine := New()
	engine.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := engine.Synthesize(ctx, "текст", "2")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Synthesize() did not stop on context cancellation")
	}
}

func TestEngineContract(t *testing.T) {
	var engine tts.Engine = New()
	if engine.Name() != "mock" {
		t.Errorf("Name() = %q", engine.Name())
	}
	if err := engine.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
