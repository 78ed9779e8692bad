package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	muted  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	danger = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F87"}

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accent).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted)

	focusedPaneStyle = paneStyle.
				BorderForeground(accent)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accent).
			Padding(0, 1)

	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(muted).
				Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(muted)

	messageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(danger)

	selectorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(accent).
				Bold(true)
)
