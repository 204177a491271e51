package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/internal/history"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/engines"
	"github.com/dgnsrekt/narrator/tts/normalize"
	"github.com/fsnotify/fsnotify"
)

const (
	dictionaryFile = "dictionary.txt"
	historyFile    = "history.db"
	cacheDir       = "cache"
)

// Session holds what outlives a single job: configuration, the pronunciation
// dictionary, the output history and the engine.
type Session struct {
	mu       sync.RWMutex
	config   tts.Config
	dictPath string
	dict     *normalize.Dictionary
	history  *history.Store
	cache    *cache.Tiered
	engine   tts.Engine
}

// OpenSession builds a session from configuration. The data directory holds
// the dictionary, the history database and the fragment cache unless the
// configuration points elsewhere.
func OpenSession(cfg tts.Config) (*Session, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: data directory not set", tts.ErrInvalidConfig)
	}

	s := &Session{config: cfg, dictPath: DictionaryPath(cfg)}
	if err := s.ReloadDictionary(); err != nil {
		return nil, err
	}

	hist, err := history.Open(HistoryPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	s.history = hist

	var store engines.Store
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = filepath.Join(cfg.DataDir, cacheDir)
		}
		c, err := cache.Open(cache.Config{
			Dir:            dir,
			MemoryCapacity: int64(cfg.Cache.MemoryMB) << 20,
			DiskCapacity:   int64(cfg.Cache.DiskMB) << 20,
			TTL:            cfg.Cache.TTL,
		})
		if err != nil {
			log.Warn("fragment cache disabled", "dir", dir, "err", err)
		} else {
			s.cache = c
			store = c
		}
	}

	engine, err := engines.New(cfg, store)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// NewSession assembles a session from parts. Any part may be nil; a session
// without an engine can only maintain the dictionary.
func NewSession(cfg tts.Config, engine tts.Engine, dict *normalize.Dictionary, hist *history.Store) *Session {
	if dict == nil {
		dict = normalize.NewDictionary()
	}
	return &Session{config: cfg, dictPath: DictionaryPath(cfg), dict: dict, history: hist, engine: engine}
}

// DictionaryPath is where the pronunciation dictionary of cfg lives.
func DictionaryPath(cfg tts.Config) string {
	if cfg.Dictionary != "" || cfg.DataDir == "" {
		return cfg.Dictionary
	}
	return filepath.Join(cfg.DataDir, dictionaryFile)
}

// HistoryPath is where the output history of cfg lives.
func HistoryPath(cfg tts.Config) string {
	return filepath.Join(cfg.DataDir, historyFile)
}

// Config returns the session configuration.
func (s *Session) Config() tts.Config { return s.config }

// Engine returns the synthesis engine.
func (s *Session) Engine() tts.Engine { return s.engine }

// History returns the history store, which may be nil.
func (s *Session) History() *history.Store { return s.history }

// DictionaryPath returns where the dictionary is loaded from and saved to.
func (s *Session) DictionaryPath() string { return s.dictPath }

// Dictionary returns a snapshot of the pronunciation dictionary.
func (s *Session) Dictionary() *normalize.Dictionary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dict.Clone()
}

// SetEntry adds or replaces a dictionary entry and saves the file.
func (s *Session) SetEntry(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dict.Set(key, value)
	return s.saveLocked()
}

// DeleteEntry removes a dictionary entry and saves the file. It reports
// whether the key existed.
func (s *Session) DeleteEntry(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dict.Delete(key) {
		return false, nil
	}
	return true, s.saveLocked()
}

func (s *Session) saveLocked() error {
	if s.dictPath == "" {
		return errors.New("dictionary path not set")
	}
	return s.dict.Save(s.dictPath)
}

// ReloadDictionary rereads the dictionary file.
func (s *Session) ReloadDictionary() error {
	if s.dictPath == "" {
		return nil
	}
	d, err := normalize.LoadDictionary(s.dictPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.dict = d
	s.mu.Unlock()
	return nil
}

// Watch reloads the dictionary whenever its file changes, until ctx ends.
// The directory is watched so that editors replacing the file are noticed.
func (s *Session) Watch(ctx context.Context) error {
	if s.dictPath == "" {
		return errors.New("dictionary path not set")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(s.dictPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.dictPath) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.ReloadDictionary(); err != nil {
					log.Warn("dictionary reload failed", "path", s.dictPath, "err", err)
					continue
				}
				log.Debug("dictionary reloaded", "path", s.dictPath, "entries", s.Dictionary().Len())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("dictionary watcher error", "err", err)
			}
		}
	}()
	return nil
}

// Remember records a finished output in the history.
func (s *Session) Remember(ctx context.Context, res *Result) error {
	if s.history == nil || res.Output == "" {
		return nil
	}
	path, err := filepath.Abs(res.Output)
	if err != nil {
		path = res.Output
	}
	return s.history.Add(ctx, history.Entry{
		Path:      path,
		CreatedAt: time.Now(),
		Mode:      string(res.Mode),
		Duration:  res.Duration,
	})
}

// Close releases the engine, the cache and the history store.
func (s *Session) Close() error {
	var errs []error
	if s.engine != nil {
		errs = append(errs, s.engine.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.history != nil {
		errs = append(errs, s.history.Close())
	}
	return errors.Join(errs...)
}
