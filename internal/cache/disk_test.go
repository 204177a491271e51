package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func payload(b byte) []byte {
	return bytes.Repeat([]byte{b, b + 1, b + 2, b + 3}, 1024)
}

func TestDiskCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache() error = %v", err)
	}
	defer dc.Close()

	value := payload(1)
	if err := dc.Put("k", value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := dc.Get("k")
	if !ok || !bytes.Equal(got, value) {
		t.Fatalf("Get() returned %d bytes, ok=%v", len(got), ok)
	}

	// Repetitive data is stored compressed.
	s := dc.Stats()
	if s.Size >= int64(len(value)) {
		t.Errorf("stored size = %d, want less than %d", s.Size, len(value))
	}
	if _, ok := dc.Get("missing"); ok {
		t.Error("Get() found a missing key")
	}
	if s := dc.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Errorf("hits/misses = %d/%d", s.Hits, s.Misses)
	}
}

func TestDiskCachePersistsIndex(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := dc.Put("k", payload(2)); err != nil {
		t.Fatal(err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	got, ok := reopened.Get("k")
	if !ok || !bytes.Equal(got, payload(2)) {
		t.Error("entry lost across reopen")
	}
}

func TestDiskCacheDropsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	dc, _ := NewDiskCache(dir, 1<<20, 0)
	_ = dc.Put("k", payload(3))
	_ = dc.Close()

	if err := os.Remove(filepath.Join(dir, "k.zst")); err != nil {
		t.Fatal(err)
	}
	reopened, _ := NewDiskCache(dir, 1<<20, 0)
	defer reopened.Close()
	if s := reopened.Stats(); s.Items != 0 || s.Size != 0 {
		t.Errorf("Stats() = %+v, want empty", s)
	}
}

func TestDiskCacheEviction(t *testing.T) {
	// Measure one compressed entry, then allow room for two and a half.
	probe, _ := NewDiskCache(t.TempDir(), 1<<20, 0)
	_ = probe.Put("p", payload(10))
	one := probe.Stats().Size
	probe.Close()

	dc, err := NewDiskCache(t.TempDir(), one*5/2, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	_ = dc.Put("a", payload(10))
	time.Sleep(2 * time.Millisecond)
	_ = dc.Put("b", payload(10))
	time.Sleep(2 * time.Millisecond)
	dc.Get("a")
	time.Sleep(2 * time.Millisecond)
	_ = dc.Put("c", payload(10))

	if _, ok := dc.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := dc.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if s := dc.Stats(); s.Evictions != 1 || s.Items != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestDiskCacheTooLarge(t *testing.T) {
	dc, _ := NewDiskCache(t.TempDir(), 8, 0)
	defer dc.Close()
	if err := dc.Put("k", payload(4)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put() error = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCacheRemoveOlderThan(t *testing.T) {
	dir := t.TempDir()
	dc, _ := NewDiskCache(dir, 1<<20, 0)
	defer dc.Close()

	_ = dc.Put("old", payload(5))
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("new", payload(6))

	if n := dc.RemoveOlderThan(cutoff); n != 1 {
		t.Errorf("RemoveOlderThan() = %d, want 1", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "old.zst")); !os.IsNotExist(err) {
		t.Error("old file should be removed")
	}
	if _, ok := dc.Get("new"); !ok {
		t.Error("new entry should survive")
	}

	if err := dc.Clear(); err != nil {
		t.Fatal(err)
	}
	if s := dc.Stats(); s.Items != 0 {
		t.Errorf("Items after Clear = %d", s.Items)
	}
}
