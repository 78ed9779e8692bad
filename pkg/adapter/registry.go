package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// A connection type is the value of a connection's `type` key in the config
// file ("oracle", "postgres", "duckdb", "sqlite"). Each driver package
// registers a Factory under its type from init, so a type is usable only
// when its package is linked into the binary. cmd/sqltui imports all of
// them. Types are matched case-insensitively.

// Factory builds an unconnected adapter for one connection type.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func normalizeType(connType string) string {
	return strings.ToLower(strings.TrimSpace(connType))
}

// Register makes connType available to connection profiles. Registering
// the same type twice replaces the earlier factory.
func Register(connType string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[normalizeType(connType)] = factory
}

// Get returns the factory registered for connType.
func Get(connType string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[normalizeType(connType)]
	return f, ok
}

// NewAdapter returns an unconnected adapter for cfg.Type. A nil logger
// discards.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if normalizeType(cfg.Type) == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger.With(slog.String("type", normalizeType(cfg.Type)))), nil
}

// ListAdapters returns the registered connection types, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsRegistered reports whether connType can be used in a connection profile.
func IsRegistered(connType string) bool {
	_, ok := Get(connType)
	return ok
}

// UnknownAdapterError reports a connection whose type has no registered
// driver.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown connection type %q (available: %s); check the connection's type in sqltui.toml",
		e.Type, strings.Join(e.Available, ", "))
}
