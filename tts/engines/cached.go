package engines

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

// Cached serves repeated (engine, voice, text) requests from a store.
type Cached struct {
	engine tts.Engine
	store  Store
}

// NewCached wraps engine with store.
func NewCached(engine tts.Engine, store Store) *Cached {
	return &Cached{engine: engine, store: store}
}

// Name implements tts.Engine.
func (c *Cached) Name() string { return c.engine.Name() }

// Close implements tts.Engine. The store is owned by the caller.
func (c *Cached) Close() error { return c.engine.Close() }

// Synthesize implements tts.Engine.
func (c *Cached) Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error) {
	key := cache.Key(c.engine.Name(), voice, text)
	if data, ok := c.store.Get(key); ok {
		buf, err := decodeFragment(data)
		if err == nil {
			return buf, nil
		}
		log.Debug("ignoring corrupt cache entry", "key", key, "err", err)
	}

	buf, err := c.engine.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(key, encodeFragment(buf)); err != nil {
		log.Debug("fragment not cached", "key", key, "err", err)
	}
	return buf, nil
}

var errShortFragment = errors.New("fragment too short")

// encodeFragment stores the sample rate followed by little-endian PCM.
func encodeFragment(b *audio.Buffer) []byte {
	out := binary.LittleEndian.AppendUint32(nil, uint32(b.SampleRate))
	return append(out, b.Bytes()...)
}

func decodeFragment(data []byte) (*audio.Buffer, error) {
	if len(data) < 4 || len(data)%2 != 0 {
		return nil, errShortFragment
	}
	rate := int(binary.LittleEndian.Uint32(data))
	if rate <= 0 {
		return nil, fmt.Errorf("bad sample rate %d", rate)
	}
	return audio.FromBytes(data[4:], rate), nil
}
