package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Execute    key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	Focus      key.Binding
	Connection key.Binding
	About      key.Binding
	Reload     key.Binding
	Edit       key.Binding
	Export     key.Binding
	ExportKey  key.Binding
	Help       key.Binding
	Quit       key.Binding

	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Close  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Execute: key.NewBinding(
			key.WithKeys("f5", "ctrl+g"),
			key.WithHelp("f5", "execute"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("ctrl+right", "ctrl+n"),
			key.WithHelp("ctrl+→", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("ctrl+left", "ctrl+p"),
			key.WithHelp("ctrl+←", "prev tab"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "focus"),
		),
		Connection: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "connection"),
		),
		About: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1/?", "about"),
		),
		Reload: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("f2", "reload config"),
		),
		Edit: key.NewBinding(
			key.WithKeys("f3"),
			key.WithHelp("f3", "edit"),
		),
		Export: key.NewBinding(
			key.WithKeys("f4"),
			key.WithHelp("f4/x", "export"),
		),
		ExportKey: key.NewBinding(
			key.WithKeys("x"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("ctrl+q", "quit"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
		),
		Choose: key.NewBinding(
			key.WithKeys("enter"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Execute, k.Connection, k.NextTab, k.Edit, k.Export, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Execute, k.Connection, k.Focus},
		{k.NextTab, k.PrevTab},
		{k.Edit, k.Export, k.Reload},
		{k.About, k.Quit},
	}
}
