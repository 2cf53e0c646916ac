package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Confirm key.Binding
	Edit    key.Binding
	Reject  key.Binding
	Save    key.Binding
	Cancel  key.Binding
	Reload  key.Binding
	Quit    key.Binding
	editing bool
}

func newKeyMap() keyMap {
	return keyMap{
		Confirm: key.NewBinding(key.WithKeys("right", "enter"), key.WithHelp("→/enter", "confirm")),
		Edit:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "edit")),
		Reject:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reject")),
		Save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel edit")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	if k.editing {
		return []key.Binding{k.Save, k.Cancel}
	}
	return []key.Binding{k.Confirm, k.Edit, k.Reject, k.Reload, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
