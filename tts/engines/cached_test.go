package engines

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/tts/engines/mock"
)

func TestCachedEngine(t *testing.T) {
	inner := mock.New()
	store := cache.NewMemoryCache(1 << 24)
	engine := NewCached(inner, store)
	ctx := context.Background()

	first, err := engine.Synthesize(ctx, "привет мир", "2")
	if err != nil {
		t.Fatal(err)
	}
	second, err := engine.Synthesize(ctx, "привет мир", "2")
	if err != nil {
		t.Fatal(err)
	}
	if inner.CallCount() != 1 {
		t.Errorf("engine calls = %d, want 1", inner.CallCount())
	}
	if second.SampleRate != first.SampleRate || !slices.Equal(second.Samples, first.Samples) {
		t.Error("cached fragment differs from the original")
	}

	// Voice is part of the key.
	if _, err := engine.Synthesize(ctx, "привет мир", "3"); err != nil {
		t.Fatal(err)
	}
	if inner.CallCount() != 2 {
		t.Errorf("engine calls = %d, want 2", inner.CallCount())
	}
}

func TestCachedEngineIgnoresCorruptEntries(t *testing.T) {
	inner := mock.New()
	inner.SetDuration(100 * time.Millisecond)
	store := cache.NewMemoryCache(1 << 24)
	_ = store.Put(cache.Key("mock", "2", "текст"), []byte{1, 2, 3})

	buf, err := NewCached(inner, store).Synthesize(context.Background(), "текст", "2")
	if err != nil {
		t.Fatal(err)
	}
	if inner.CallCount() != 1 || buf.Duration() != 100*time.Millisecond {
		t.Errorf("calls = %d, duration = %v", inner.CallCount(), buf.Duration())
	}
}

func TestCachedEngineDoesNotCacheFailures(t *testing.T) {
	inner := mock.New()
	inner.SetFailure(context.DeadlineExceeded)
	store := cache.NewMemoryCache(1 << 24)

	if _, err := NewCached(inner, store).Synthesize(context.Background(), "текст", "2"); err == nil {
		t.Fatal("expected error")
	}
	if store.Stats().Items != 0 {
		t.Error("a failed call was cached")
	}
}
