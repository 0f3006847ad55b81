package terminal

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the driver terminal key bindings.
type KeyMap struct {
	Submit    key.Binding // Unlock with the typed PIN, or confirm the selected reason.
	GoOnline  key.Binding
	GoOffline key.Binding
	EndShift  key.Binding
	Back      key.Binding
	Up        key.Binding
	Down      key.Binding
	Logout    key.Binding
	Quit      key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	GoOnline: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "go online"),
	),
	GoOffline: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "go offline"),
	),
	EndShift: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "end shift"),
	),
	Back: key.NewBinding(
		key.WithKeys("b", "esc"),
		key.WithHelp("b/esc", "back"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Logout: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "logout"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
}
