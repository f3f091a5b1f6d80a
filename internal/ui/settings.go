package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"polymarket-edge/internal/settings"
)

// SettingsScreen edits the four user settings, one step at a time.
type SettingsScreen struct {
	deps   Deps
	keys   KeyMap
	help   help.Model
	fields []settings.Field
	cursor int
	err    error
}

// NewSettingsScreen lists every setting in display order.
func NewSettingsScreen(deps Deps) *SettingsScreen {
	return &SettingsScreen{
		deps:   deps,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		fields: settings.Fields(),
	}
}

// Init does nothing.
func (s *SettingsScreen) Init() tea.Cmd { return nil }

// Update moves the cursor and adjusts values.
func (s *SettingsScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case settingSavedMsg:
		s.err = msg.err
		return s, nil

	case tea.KeyMsg:
		field := s.fields[s.cursor]
		switch {
		case key.Matches(msg, s.keys.Quit):
			return s, tea.Quit
		case key.Matches(msg, s.keys.Back):
			return s, pop
		case key.Matches(msg, s.keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, s.keys.Down):
			if s.cursor < len(s.fields)-1 {
				s.cursor++
			}
		case field.Kind == settings.KindToggle && key.Matches(msg, s.keys.Toggle, s.keys.Increase, s.keys.Decrease):
			return s, s.adjust(field.Key, 1)
		case key.Matches(msg, s.keys.Increase):
			return s, s.adjust(field.Key, 1)
		case key.Matches(msg, s.keys.Decrease):
			return s, s.adjust(field.Key, -1)
		}
	}
	return s, nil
}

func (s *SettingsScreen) adjust(k string, steps int) tea.Cmd {
	store, ctx := s.deps.Settings, s.deps.Ctx
	return func() tea.Msg {
		return settingSavedMsg{key: k, err: store.Adjust(ctx, k, steps)}
	}
}

// SetSize records the terminal width for the help bar.
func (s *SettingsScreen) SetSize(width, height int) {
	s.help.Width = width
}

// View renders the settings with the cursor row highlighted.
func (s *SettingsScreen) View() string {
	values := s.deps.Settings.Values()
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n")

	for i, field := range s.fields {
		value, _ := values.Get(field.Key)
		hint := ""
		if field.Kind == settings.KindNumber {
			hint = subtitleStyle.Render(fmt.Sprintf("  [%g – %g, step %g]", field.Min, field.Max, field.Step))
		}
		line := fmt.Sprintf("%-26s %s", field.Label, value)
		if i == s.cursor {
			b.WriteString(selectedStyle.Render("› "+line) + hint + "\n")
		} else {
			b.WriteString("  " + valueStyle.Render(line) + hint + "\n")
		}
	}

	if s.err != nil {
		b.WriteString("\n" + errorStyle.Render("Could not save: "+s.err.Error()) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(s.help.View(settingsHelp{k: s.keys}))
	return frameStyle.Render(b.String())
}
