package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const indexFile = "cache.index"

// DiskCache stores zstd-compressed values as files under one directory.
// The index is persisted on Close.
type DiskCache struct {
	mu       sync.Mutex
	dir      string
	capacity int64 // compressed bytes
	size     int64
	index    map[string]*diskEntry
	stats    Stats

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// diskEntry is persisted with gob, so its fields are exported.
type diskEntry struct {
	File     string
	Size     int64
	Stored   time.Time
	Accessed time.Time
}

// NewDiskCache opens or creates a disk cache in dir.
func NewDiskCache(dir string, capacity int64, level int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if level <= 0 {
		level = 3
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		encoder:  encoder,
		decoder:  decoder,
	}
	if err := dc.loadIndex(); err != nil {
		log.Warn("cache index unreadable, starting empty", "dir", dir, "err", err)
		dc.index = make(map[string]*diskEntry)
	}
	for key, e := range dc.index {
		if _, err := os.Stat(filepath.Join(dir, e.File)); err != nil {
			delete(dc.index, key)
			continue
		}
		dc.size += e.Size
	}
	return dc, nil
}

// Get returns the decompressed value for key.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	e, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(dc.dir, e.File))
	if err == nil {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		log.Debug("dropping unreadable cache entry", "key", key, "err", err)
		dc.drop(key)
		dc.stats.Misses++
		return nil, false
	}
	e.Accessed = time.Now()
	dc.stats.Hits++
	return data, true
}

// Put compresses value and stores it under key, evicting the least recently
// accessed entries to stay within capacity.
func (dc *DiskCache) Put(key string, value []byte) error {
	compressed := dc.encoder.EncodeAll(value, nil)
	n := int64(len(compressed))

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if n > dc.capacity {
		return ErrItemTooLarge
	}
	if _, ok := dc.index[key]; ok {
		dc.drop(key)
	}
	for dc.size+n > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	name := key + ".zst"
	if err := writeAtomic(filepath.Join(dc.dir, name), compressed); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	now := time.Now()
	dc.index[key] = &diskEntry{File: name, Size: n, Stored: now, Accessed: now}
	dc.size += n
	return nil
}

// Delete removes key if present.
func (dc *DiskCache) Delete(key string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if _, ok := dc.index[key]; ok {
		dc.drop(key)
	}
}

// Clear removes every entry and its file.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	for key := range dc.index {
		dc.drop(key)
	}
	return dc.saveIndex()
}

// RemoveOlderThan drops entries stored before cutoff.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, e := range dc.index {
		if e.Stored.Before(cutoff) {
			dc.drop(key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the counters. Size is compressed bytes.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	s := dc.stats
	s.Capacity = dc.capacity
	s.Size = dc.size
	s.Items = len(dc.index)
	return s
}

// Close persists the index and releases the codecs.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	err := dc.saveIndex()
	dc.decoder.Close()
	return errors.Join(err, dc.encoder.Close())
}

// drop must be called with the lock held.
func (dc *DiskCache) drop(key string) {
	e := dc.index[key]
	_ = os.Remove(filepath.Join(dc.dir, e.File))
	dc.size -= e.Size
	delete(dc.index, key)
}

func (dc *DiskCache) evictOldest() {
	var oldest string
	var at time.Time
	for key, e := range dc.index {
		if oldest == "" || e.Accessed.Before(at) {
			oldest, at = key, e.Accessed
		}
	}
	if oldest != "" {
		dc.drop(oldest)
		dc.stats.Evictions++
	}
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	path := filepath.Join(dc.dir, indexFile)
	tmp, err := os.CreateTemp(dc.dir, indexFile+".*")
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(tmp).Encode(dc.index); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// writeAtomic writes data to a temp file beside path and renames it into
// place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
