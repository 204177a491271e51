package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Config sizes a tiered cache.
type Config struct {
	Dir            string
	MemoryCapacity int64 // bytes
	DiskCapacity   int64 // compressed bytes
	TTL            time.Duration
	Level          int // zstd level, 0 for the default
}

// Tiered checks memory first and falls back to disk, promoting disk hits.
type Tiered struct {
	memory *MemoryCache
	disk   *DiskCache
	ttl    time.Duration
}

// Open creates a tiered cache and drops disk entries older than the TTL.
func Open(cfg Config) (*Tiered, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache directory not set")
	}
	disk, err := NewDiskCache(cfg.Dir, cfg.DiskCapacity, cfg.Level)
	if err != nil {
		return nil, err
	}
	t := &Tiered{
		memory: NewMemoryCache(cfg.MemoryCapacity),
		disk:   disk,
		ttl:    cfg.TTL,
	}
	if cfg.TTL > 0 {
		if n := disk.RemoveOlderThan(time.Now().Add(-cfg.TTL)); n > 0 {
			log.Debug("expired cache entries removed", "count", n)
		}
	}
	return t, nil
}

// Get looks key up in memory, then on disk.
func (t *Tiered) Get(key string) ([]byte, bool) {
	if data, ok := t.memory.Get(key); ok {
		return data, true
	}
	data, ok := t.disk.Get(key)
	if !ok {
		return nil, false
	}
	_ = t.memory.Put(key, data)
	return data, true
}

// Put stores value in both tiers. A value too large for memory still goes to
// disk.
func (t *Tiered) Put(key string, value []byte) error {
	if err := t.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", err)
	}
	if err := t.disk.Put(key, value); err != nil {
		return fmt.Errorf("disk cache: %w", err)
	}
	return nil
}

// Clear empties both tiers.
func (t *Tiered) Clear() error {
	t.memory.Clear()
	return t.disk.Clear()
}

// Stats returns the counters of both tiers.
func (t *Tiered) Stats() (memory, disk Stats) {
	return t.memory.Stats(), t.disk.Stats()
}

// Close persists the disk index.
func (t *Tiered) Close() error {
	return t.disk.Close()
}
