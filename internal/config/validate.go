package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqltui/pkg/adapter"
)

// Validate checks connection completeness and tab uniqueness.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.FetchBatchSize < 1 {
		errs = append(errs, fmt.Errorf("fetch_batch_size must be at least 1, got %d", c.FetchBatchSize))
	}
	if c.MessageSeconds <= 0 {
		errs = append(errs, fmt.Errorf("message_seconds must be positive, got %v", c.MessageSeconds))
	}

	for _, key := range c.ConnectionKeys() {
		if err := c.Connections[key].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("connection %q: %w", key, err))
		}
	}

	errs = append(errs, c.validateTabs()...)

	return errors.Join(errs...)
}

// Validate checks that a connection carries everything its type needs.
func (p ConnectionProfile) Validate() error {
	if !adapter.IsRegistered(p.Type) {
		return &adapter.UnknownAdapterError{Type: p.Type, Available: adapter.ListAdapters()}
	}

	var missing []string
	if p.IsNetworked() {
		if p.Host == "" {
			missing = append(missing, "host")
		}
		if p.User == "" {
			missing = append(missing, "user")
		}
		if p.Password == "" {
			missing = append(missing, "passwd")
		}
	}
	if p.Database == "" {
		missing = append(missing, "database")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("port %d out of range", p.Port)
	}
	return nil
}

// validateTabs checks tab keys and that no two tabs share a file.
func (c *Config) validateTabs() []error {
	var errs []error
	seenKeys := make(map[string]string)
	queryOwners := make(map[string]string)
	resultOwners := make(map[string]string)

	for _, key := range c.TabKeys() {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" || trimmed != key || strings.ContainsAny(key, `/\`) {
			errs = append(errs, fmt.Errorf("tab key %q must be non-empty without spaces or path separators", key))
			continue
		}
		folded := strings.ToLower(key)
		if other, ok := seenKeys[folded]; ok {
			errs = append(errs, fmt.Errorf("tab keys %q and %q are not distinct", other, key))
			continue
		}
		seenKeys[folded] = key

		tab := c.Tab(key)
		qf := filepath.Clean(tab.QueryFile)
		rf := filepath.Clean(tab.ResultsFile)
		if other, ok := queryOwners[qf]; ok {
			errs = append(errs, fmt.Errorf("tabs %q and %q share query file %s", other, key, qf))
		}
		if other, ok := resultOwners[rf]; ok {
			errs = append(errs, fmt.Errorf("tabs %q and %q share results file %s", other, key, rf))
		}
		if qf == rf {
			errs = append(errs, fmt.Errorf("tab %q uses %s as both query and results file", key, qf))
		}
		queryOwners[qf] = key
		resultOwners[rf] = key
	}
	return errs
}
