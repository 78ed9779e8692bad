package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables that override top-level settings.
const EnvPrefix = "SQLTUI_"

// loggerKey is used to store the logger in a context.
type loggerKey struct{}

// Error reports a configuration file that could not be loaded or is invalid.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DefaultPath returns the config file location.
// Priority: $SQLTUI_CONFIG > $XDG_CONFIG_HOME/sqltui > ~/.config/sqltui.
// A sqltui.yaml next to a missing sqltui.toml is picked up as well.
func DefaultPath() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}

	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, ".config")
	}
	dir = filepath.Join(dir, "sqltui")

	tomlPath := filepath.Join(dir, "sqltui.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath
	}
	for _, name := range []string{"sqltui.yaml", "sqltui.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return tomlPath
}

// parserFor selects the koanf parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .toml or .yaml)", filepath.Ext(path))
	}
}

// Load reads and validates the configuration file at path.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Every failure is returned as *Error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := load(path, flags)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

func load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"fetch_batch_size": DefaultFetchBatchSize,
		"message_seconds":  DefaultMessageSeconds,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found (create it or pass --config)")
		}
		return nil, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// 3. Environment variables (SQLTUI_ prefix)
	// Transform: SQLTUI_FETCH_BATCH_SIZE -> fetch_batch_size
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if key == "config" {
			return ""
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || !settingFlags[f.Name] {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Path = path

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// settingFlags are the CLI flags that map onto config keys.
var settingFlags = map[string]bool{
	"editor":           true,
	"spreadsheet":      true,
	"fetch-batch-size": true,
	"message-seconds":  true,
}

// applyDefaults fills keys, per-type ports and the implicit tab.
func applyDefaults(cfg *Config) {
	if cfg.Connections == nil {
		cfg.Connections = map[string]ConnectionProfile{}
	}
	for key, p := range cfg.Connections {
		p.Key = key
		if p.Type == "" {
			p.Type = DefaultConnectionType
		}
		p.Type = strings.ToLower(p.Type)
		if p.Port == 0 {
			switch p.Type {
			case "oracle":
				p.Port = DefaultOraclePort
			case "postgres":
				p.Port = DefaultPostgresPort
			}
		}
		expandProfileEnvVars(&p)
		cfg.Connections[key] = p
	}

	if len(cfg.Tabs) == 0 {
		cfg.Tabs = map[string]TabConfig{DefaultTabKey: {}}
	}
	for key, t := range cfg.Tabs {
		t.Key = key
		cfg.Tabs[key] = t
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandProfileEnvVars expands environment variables in sensitive connection fields.
func expandProfileEnvVars(p *ConnectionProfile) {
	p.Password = expandEnvVars(p.Password)
	p.User = expandEnvVars(p.User)
	p.Host = expandEnvVars(p.Host)
	p.Database = expandEnvVars(p.Database)
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
