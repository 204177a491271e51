// Package engines builds the configured synthesis engine and the decorators
// that wrap it.
package engines

import (
	"fmt"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/engines/gtts"
	"github.com/dgnsrekt/narrator/tts/engines/mock"
	"github.com/dgnsrekt/narrator/tts/engines/piper"
	"github.com/dgnsrekt/narrator/tts/engines/remote"
)

// DefaultMaxFailures is how many consecutive primary failures switch a
// fallback engine over for good.
const DefaultMaxFailures = 3

// Store is the byte cache consulted by Cached.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// New builds the engine named by cfg.Engine. A configured fallback engine
// wraps it, and a non-nil store adds a fragment cache on top.
func New(cfg tts.Config, store Store) (tts.Engine, error) {
	primary, err := Build(cfg.Engine, cfg)
	if err != nil {
		return nil, err
	}

	var engine tts.Engine = primary
	if cfg.Fallback != "" {
		secondary, err := Build(cfg.Fallback, cfg)
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("fallback engine: %w", err)
		}
		engine = NewFallbackEngine(primary, secondary, DefaultMaxFailures)
	}

	if store != nil {
		engine = NewCached(engine, store)
	}
	return engine, nil
}

// Build creates a single engine by name.
func Build(name string, cfg tts.Config) (tts.Engine, error) {
	switch name {
	case tts.EnginePiper:
		engine, err := piper.New(cfg.Piper)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case tts.EngineRemote:
		return remote.New(cfg.Remote), nil
	case tts.EngineGTTS:
		engine, err := gtts.New(cfg.GTTS, cfg.FFmpeg, cfg.SampleRate)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case tts.EngineMock:
		return mock.NewWithConfig(cfg.Mock, cfg.SampleRate), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", tts.ErrInvalidConfig, name)
	}
}
