package engines

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/tts"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		engine   string
		fallback string
		store    Store
		wantType string
		wantErr  error
	}{
		{"mock", tts.EngineMock, "", nil, "*mock.MockEngine", nil},
		{"remote", tts.EngineRemote, "", nil, "*remote.RemoteEngine", nil},
		{"fallback", tts.EngineRemote, tts.EngineMock, nil, "*engines.FallbackEngine", nil},
		{"cached", tts.EngineMock, "", cache.NewMemoryCache(1024), "*engines.Cached", nil},
		{"unknown", "festival", "", nil, "", tts.ErrInvalidConfig},
		{"unknown fallback", tts.EngineMock, "festival", nil, "", tts.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tts.DefaultConfig()
			cfg.Engine = tt.engine
			cfg.Fallback = tt.fallback

			engine, err := New(cfg, tt.store)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer engine.Close()
			if got := fmt.Sprintf("%T", engine); got != tt.wantType {
				t.Errorf("New() type = %s, want %s", got, tt.wantType)
			}
		})
	}
}
