package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestTieredPromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Dir: dir, MemoryCapacity: 1 << 20, DiskCapacity: 1 << 20, TTL: time.Hour}

	c, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := c.Put("k", payload(7)); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// A fresh process starts with an empty memory tier.
	c, err = Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got, ok := c.Get("k")
	if !ok || !bytes.Equal(got, payload(7)) {
		t.Fatal("disk entry not found")
	}
	mem, disk := c.Stats()
	if mem.Items != 1 {
		t.Errorf("memory items = %d, want 1 after promotion", mem.Items)
	}
	if disk.Hits != 1 {
		t.Errorf("disk hits = %d, want 1", disk.Hits)
	}

	c.Get("k")
	if _, disk := c.Stats(); disk.Hits != 1 {
		t.Errorf("second lookup reached disk")
	}
}

func TestTieredLargeValueSkipsMemory(t *testing.T) {
	c, err := Open(Config{Dir: t.TempDir(), MemoryCapacity: 16, DiskCapacity: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Put("k", payload(8)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	mem, disk := c.Stats()
	if mem.Items != 0 || disk.Items != 1 {
		t.Errorf("memory/disk items = %d/%d, want 0/1", mem.Items, disk.Items)
	}
}

func TestTieredRequiresDir(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open() without a directory should fail")
	}
}
