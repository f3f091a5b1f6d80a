package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for every screen.
type KeyMap struct {
	Quit  key.Binding
	Back  key.Binding
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding

	Retry     key.Binding
	NextSport key.Binding
	PrevSport key.Binding
	MoreEV    key.Binding
	LessEV    key.Binding
	Settings  key.Binding
	Trace     key.Binding

	Increase key.Binding
	Decrease key.Binding
	Toggle   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r", "refresh"),
		),
		NextSport: key.NewBinding(
			key.WithKeys("tab", "]"),
			key.WithHelp("tab", "next sport"),
		),
		PrevSport: key.NewBinding(
			key.WithKeys("shift+tab", "["),
			key.WithHelp("shift+tab", "prev sport"),
		),
		MoreEV: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "raise min EV"),
		),
		LessEV: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "lower min EV"),
		),
		Settings: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "settings"),
		),
		Trace: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "trace"),
		),
		Increase: key.NewBinding(
			key.WithKeys("right", "l", "+", "="),
			key.WithHelp("→/+", "increase"),
		),
		Decrease: key.NewBinding(
			key.WithKeys("left", "h", "-"),
			key.WithHelp("←/-", "decrease"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("space", "toggle"),
		),
	}
}

// listHelp is the key map shown under the list screen.
type listHelp struct{ k KeyMap }

func (h listHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Up, h.k.Down, h.k.Enter, h.k.NextSport, h.k.MoreEV, h.k.LessEV, h.k.Retry, h.k.Settings, h.k.Quit}
}

func (h listHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

type detailHelp struct {
	k         KeyMap
	developer bool
}

func (h detailHelp) ShortHelp() []key.Binding {
	if h.developer {
		return []key.Binding{h.k.Trace, h.k.Back, h.k.Quit}
	}
	return []key.Binding{h.k.Back, h.k.Quit}
}

func (h detailHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }

type settingsHelp struct{ k KeyMap }

func (h settingsHelp) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Up, h.k.Down, h.k.Decrease, h.k.Increase, h.k.Toggle, h.k.Back, h.k.Quit}
}

func (h settingsHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.ShortHelp()} }
