package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// PlaybackSampleRate is the rate the output device is opened at; oto is
// only reliable at 44100 or 48000 Hz.
const PlaybackSampleRate = 44100

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// sharedContext returns the process-wide oto context. Oto allows only one.
func sharedContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   PlaybackSampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(op)
		if otoErr == nil {
			<-ready
		}
	})
	return otoCtx, otoErr
}

// Player plays buffers on the default output device.
type Player struct {
	ctx    *oto.Context
	volume float64
}

// NewPlayer opens the audio device.
func NewPlayer() (*Player, error) {
	ctx, err := sharedContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	return &Player{ctx: ctx, volume: 1}, nil
}

// SetVolume sets playback volume in [0, 1].
func (p *Player) SetVolume(v float64) {
	p.volume = min(max(v, 0), 1)
}

// Play blocks until b has been played or ctx is done.
func (p *Player) Play(ctx context.Context, b *Buffer) error {
	if b.Len() == 0 {
		return errors.New("audio data is empty")
	}

	// The byte slice must outlive the oto player.
	data := b.Resample(PlaybackSampleRate).Bytes()
	player := p.ctx.NewPlayer(bytes.NewReader(data))
	defer player.Close() //nolint:errcheck

	player.SetVolume(p.volume)
	player.Play()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}
