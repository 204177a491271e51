package engines

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

// FallbackEngine wraps a primary engine with a secondary one. A failed
// primary call is retried on the secondary; after maxFailures consecutive
// primary failures the secondary is used directly.
type FallbackEngine struct {
	primary       tts.Engine
	fallback      tts.Engine
	failures      int
	maxFailures   int
	usingFallback bool
	mu            sync.Mutex
}

// NewFallbackEngine creates a new engine with automatic fallback capability.
func NewFallbackEngine(primary, fallback tts.Engine, maxFailures int) *FallbackEngine {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &FallbackEngine{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
	}
}

// Name implements tts.Engine.
func (f *FallbackEngine) Name() string {
	return f.primary.Name() + "+" + f.fallback.Name()
}

// Synthesize implements tts.Engine.
func (f *FallbackEngine) Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error) {
	f.mu.Lock()
	switched := f.usingFallback
	f.mu.Unlock()

	if switched {
		return f.fallback.Synthesize(ctx, text, voice)
	}

	buf, err := f.primary.Synthesize(ctx, text, voice)
	if err == nil {
		f.mu.Lock()
		if f.failures > 0 {
			log.Info("primary engine recovered", "engine", f.primary.Name(), "failures", f.failures)
			f.failures = 0
		}
		f.mu.Unlock()
		return buf, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	f.mu.Lock()
	f.failures++
	log.Warn("primary engine failed", "engine", f.primary.Name(), "attempt", f.failures, "max", f.maxFailures, "err", err)
	if f.failures >= f.maxFailures && !f.usingFallback {
		log.Warn("switching to fallback engine", "engine", f.fallback.Name())
		f.usingFallback = true
	}
	f.mu.Unlock()

	buf, fbErr := f.fallback.Synthesize(ctx, text, voice)
	if fbErr != nil {
		return nil, fmt.Errorf("%w: both engines failed: %w", tts.ErrSynthesis, errors.Join(err, fbErr))
	}
	return buf, nil
}

// Reset returns to the primary engine.
func (f *FallbackEngine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures = 0
	f.usingFallback = false
	log.Info("reset to primary engine", "engine", f.primary.Name())
}

// Status describes which engine is active.
func (f *FallbackEngine) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.usingFallback {
		return fmt.Sprintf("using fallback engine (primary failed %d times)", f.failures)
	}
	return fmt.Sprintf("using primary engine (failures: %d/%d)", f.failures, f.maxFailures)
}

// Close closes both engines.
func (f *FallbackEngine) Close() error {
	var errs []error
	if err := f.primary.Close(); err != nil {
		errs = append(errs, fmt.Errorf("primary close: %w", err))
	}
	if err := f.fallback.Close(); err != nil {
		errs = append(errs, fmt.Errorf("fallback close: %w", err))
	}
	return errors.Join(errs...)
}
