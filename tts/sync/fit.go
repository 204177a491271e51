package sync

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

// DefaultSpeedStep is the increment of the adaptive speed search.
const DefaultSpeedStep = 0.1

// FitResult is the outcome of FitToBudget.
type FitResult struct {
	Audio *audio.Buffer
	Speed float64
	Fits  bool
}

// FitToBudget raises the speed in steps until buf, already rendered at
// initial speed, fits into budget or the speed reaches max. Each step
// re-stretches the original buffer by speed/initial; nothing is synthesized
// again. cancelled, when not nil, and ctx are checked before every step.
func FitToBudget(ctx context.Context, buf *audio.Buffer, budget time.Duration, initial, max, step float64, cancelled func() bool) (FitResult, error) {
	if step <= 0 {
		step = DefaultSpeedStep
	}
	if initial <= 0 {
		initial = 1
	}

	st := audio.NewStretcher(buf)
	speed := initial
	out := buf
	for out.Duration() > budget && speed < max {
		if cancelled != nil && cancelled() {
			return FitResult{}, tts.NewError(tts.ErrUserAbort, "sync", "fit")
		}
		if err := ctx.Err(); err != nil {
			return FitResult{}, fmt.Errorf("%w: %w", tts.ErrUserAbort, err)
		}
		speed = math.Min(roundSpeed(speed+step), max)
		out = st.Stretch(speed / initial)
	}
	return FitResult{Audio: out, Speed: speed, Fits: out.Duration() <= budget}, nil
}

// roundSpeed keeps repeated 0.1 steps from drifting.
func roundSpeed(v float64) float64 {
	return math.Round(v*1000) / 1000
}
