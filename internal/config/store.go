package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
)

// watchDebounce coalesces the burst of events editors produce on save.
const watchDebounce = 150 * time.Millisecond

// Store owns the active Config snapshot.
// Readers call Current from any goroutine; Reload replaces the snapshot
// wholesale and never mutates a published value.
type Store struct {
	path    string
	flags   *pflag.FlagSet
	logger  *slog.Logger
	current atomic.Pointer[Config]

	// reloadMu serializes reloads so two loads cannot race on the swap.
	reloadMu sync.Mutex
}

// NewStore loads path once and returns a store holding the result.
func NewStore(path string, flags *pflag.FlagSet, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{path: path, flags: flags, logger: logger}
	cfg, err := Load(path, flags)
	if err != nil {
		return nil, err
	}
	s.current.Store(cfg)
	logger.Debug("configuration loaded",
		slog.String("path", path),
		slog.Int("connections", len(cfg.Connections)),
		slog.Int("tabs", len(cfg.Tabs)))
	return s, nil
}

// NewStaticStore wraps an already built config, for tests and headless use.
func NewStaticStore(cfg *Config) *Store {
	s := &Store{path: cfg.Path, logger: slog.New(slog.DiscardHandler)}
	s.current.Store(cfg)
	return s
}

// Path returns the config file the store reads.
func (s *Store) Path() string {
	return s.path
}

// Current returns the active snapshot.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Reload re-reads the config file. On success the new snapshot replaces the
// old one and is returned; on failure the previous snapshot stays active.
func (s *Store) Reload() (*Config, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cfg, err := Load(s.path, s.flags)
	if err != nil {
		s.logger.Warn("configuration reload failed, keeping previous", slog.Any("error", err))
		return nil, err
	}
	s.current.Store(cfg)
	s.logger.Info("configuration reloaded", slog.String("path", s.path))
	return cfg, nil
}

// Watch reloads the store whenever the config file changes and reports each
// outcome to onReload. It blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, onReload func(*Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors often replace the file by rename.
	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	var debounce *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug("config file changed", slog.String("op", event.Op.String()))
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				debounce.Reset(watchDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			cfg, err := s.Reload()
			if onReload != nil {
				onReload(cfg, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("config watcher error", slog.Any("error", err))
		}
	}
}
