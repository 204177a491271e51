// Package mock provides a deterministic synthesis engine for tests and dry
// runs.
package mock

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

// MockEngine renders a fixed tone whose length depends only on the text.
type MockEngine struct {
	mu sync.Mutex

	// Configuration
	sampleRate     int
	wordsPerMinute int
	delay          time.Duration // simulated processing delay
	fixed          time.Duration // when set, every call returns this much audio

	// Control for testing
	failWhen func(text string) bool
	failErr  error

	// State
	calls []string
}

// New creates a mock engine with default settings.
func New() *MockEngine {
	return NewWithConfig(tts.DefaultMockConfig(), audio.DefaultSampleRate)
}

// NewWithConfig creates a mock engine from configuration.
func NewWithConfig(cfg tts.MockConfig, sampleRate int) *MockEngine {
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = tts.DefaultMockConfig().WordsPerMinute
	}
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &MockEngine{
		sampleRate:     sampleRate,
		wordsPerMinute: cfg.WordsPerMinute,
		delay:          cfg.Delay,
	}
}

// Name implements tts.Engine.
func (e *MockEngine) Name() string { return "mock" }

// Close implements tts.Engine.
func (e *MockEngine) Close() error { return nil }

// Synthesize implements tts.Engine.
func (e *MockEngine) Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	delay := e.delay
	fail := e.failWhen != nil && e.failWhen(text)
	failErr := e.failErr
	d := e.fixed
	if d == 0 {
		d = e.estimateDuration(text)
	}
	rate := e.sampleRate
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, fmt.Errorf("%w: mock: %w", tts.ErrSynthesis, failErr)
	}
	return tone(d, rate), nil
}

// Test control methods

// SetDelay sets the simulated processing delay.
func (e *MockEngine) SetDelay(delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = delay
}

// SetDuration makes every call return exactly d of audio. Zero restores the
// text-length estimate.
func (e *MockEngine) SetDuration(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fixed = d
}

// SetFailure configures the engine to fail every call with err.
func (e *MockEngine) SetFailure(err error) {
	e.FailWhen(func(string) bool { return true }, err)
}

// FailWhen makes calls whose text matches pred fail with err.
func (e *MockEngine) FailWhen(pred func(text string) bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failWhen = pred
	e.failErr = err
}

// FailOn fails every call whose text contains substr.
func (e *MockEngine) FailOn(substr string, err error) {
	e.FailWhen(func(text string) bool { return strings.Contains(text, substr) }, err)
}

// ClearFailure resets the engine to normal operation.
func (e *MockEngine) ClearFailure() {
	e.FailWhen(nil, nil)
}

// CallCount returns the number of Synthesize calls.
func (e *MockEngine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// Calls returns the texts passed to Synthesize, in call order.
func (e *MockEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// estimateDuration estimates speaking duration for text.
func (e *MockEngine) estimateDuration(text string) time.Duration {
	words := max(len(strings.Fields(text)), 1)
	seconds := float64(words) * 60.0 / float64(e.wordsPerMinute)
	return time.Duration(seconds * float64(time.Second))
}

// tone returns a 220 Hz sine of length d.
func tone(d time.Duration, rate int) *audio.Buffer {
	n := int(math.Round(d.Seconds() * float64(rate)))
	b := &audio.Buffer{SampleRate: rate, Samples: make([]int16, n)}
	for i := range b.Samples {
		b.Samples[i] = int16(8000 * math.Sin(2*math.Pi*220*float64(i)/float64(rate)))
	}
	return b
}
