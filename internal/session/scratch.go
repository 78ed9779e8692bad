package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// LoadText reads a scratch file. A missing or unreadable file yields "".
func LoadText(path string, logger *slog.Logger) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && logger != nil {
			logger.Warn("could not read scratch file", slog.String("path", path), slog.Any("error", err))
		}
		return ""
	}
	return string(data)
}

// SaveText overwrites the scratch file with text, creating its directory.
func SaveText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("failed to save query text: %w", err)
	}
	return nil
}
