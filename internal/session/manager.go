package session

import (
	"log/slog"
	"sync"

	"github.com/leapstack-labs/sqltui/internal/config"
)

// ConfigSource supplies the active configuration snapshot.
type ConfigSource interface {
	Current() *config.Config
}

// Manager owns exactly one Session per configured tab.
type Manager struct {
	cfg    ConfigSource
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session for every tab in the current config.
func NewManager(cfg ConfigSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
	m.Sync()
	return m
}

// Sync aligns the sessions with the current config's tabs: new tabs get a
// fresh session, removed tabs lose theirs, existing sessions are kept.
func (m *Manager) Sync() []string {
	tabs := m.cfg.Current().TabKeys()

	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(tabs))
	for _, tab := range tabs {
		wanted[tab] = true
		if _, ok := m.sessions[tab]; !ok {
			m.sessions[tab] = New(tab)
		}
	}
	for tab := range m.sessions {
		if !wanted[tab] {
			m.logger.Debug("dropping session for removed tab", slog.String("tab", tab))
			delete(m.sessions, tab)
		}
	}
	return tabs
}

// Tabs returns the configured tab keys in display order.
func (m *Manager) Tabs() []string {
	return m.cfg.Current().TabKeys()
}

// Get returns the session for tab, or nil if the tab is not configured.
func (m *Manager) Get(tab string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[tab]
}

// QueryFile returns the scratch file path for tab.
func (m *Manager) QueryFile(tab string) string {
	return m.cfg.Current().QueryFile(tab)
}

// LoadText reads the tab's scratch file; "" when there is no saved text.
func (m *Manager) LoadText(tab string) string {
	return LoadText(m.QueryFile(tab), m.logger)
}

// SaveText overwrites the tab's scratch file.
func (m *Manager) SaveText(tab, text string) error {
	path := m.QueryFile(tab)
	m.logger.Debug("saving query text", slog.String("tab", tab), slog.String("path", path))
	return SaveText(path, text)
}

// SwitchTo activates tab: its scratch text becomes the session text and is
// returned for the editor.
func (m *Manager) SwitchTo(tab string) string {
	text := m.LoadText(tab)
	if s := m.Get(tab); s != nil {
		s.SetText(text)
	}
	return text
}

// Blur handles focus leaving tab's editor: the text is kept in the session
// and persisted to the scratch file.
func (m *Manager) Blur(tab, text string) error {
	if s := m.Get(tab); s != nil {
		s.SetText(text)
	}
	return m.SaveText(tab, text)
}
