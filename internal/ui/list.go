package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"polymarket-edge/internal/format"
	"polymarket-edge/internal/model"
	"polymarket-edge/internal/settings"
	"polymarket-edge/internal/viewmodel"
)

// evStep is how far +/- move the EV threshold, in percent.
const evStep = 0.5

// chromeLines is the header and footer height around the rows.
const chromeLines = 8

// ListScreen shows the filtered opportunity view.
type ListScreen struct {
	deps    Deps
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	// requested is set between issuing a load and its result arriving.
	requested bool
	cursor    int
	offset    int
	width     int
	height    int
	now       func() time.Time
}

// NewListScreen builds the root screen.
func NewListScreen(deps Deps) *ListScreen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return &ListScreen{
		deps:    deps,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		height:  24,
		now:     time.Now,
	}
}

// Init starts the first load.
func (s *ListScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.load())
}

func (s *ListScreen) load() tea.Cmd {
	s.requested = true
	list, ctx := s.deps.List, s.deps.Ctx
	return func() tea.Msg {
		return loadedMsg{err: list.Load(ctx)}
	}
}

func (s *ListScreen) loading() bool {
	return s.requested || s.deps.List.State().Loading
}

// Update handles keys and load results.
func (s *ListScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.requested = false
		s.clampCursor()
		return s, nil

	case settingsChangedMsg:
		if msg.change.Key == settings.KeyDefaultEVPercent {
			s.deps.List.SetMinEVPercent(msg.change.Values.DefaultEVPercent)
			s.resetCursor()
		}
		return s, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *ListScreen) handleKey(msg tea.KeyMsg) (Screen, tea.Cmd) {
	list := s.deps.List
	switch {
	case key.Matches(msg, s.keys.Quit):
		return s, tea.Quit

	case key.Matches(msg, s.keys.Retry):
		if s.loading() {
			return s, nil
		}
		return s, s.load()

	case key.Matches(msg, s.keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
		s.scroll()

	case key.Matches(msg, s.keys.Down):
		items := list.FilteredSorted()
		if s.cursor < len(items)-1 {
			s.cursor++
		}
		if s.cursor < len(items) {
			list.LoadMoreIfNeeded(&items[s.cursor])
		}
		s.scroll()

	case key.Matches(msg, s.keys.Enter):
		items := list.FilteredSorted()
		if s.cursor < len(items) {
			return s, push(NewDetailScreen(s.deps, items[s.cursor]))
		}

	case key.Matches(msg, s.keys.NextSport):
		s.cycleSport(1)

	case key.Matches(msg, s.keys.PrevSport):
		s.cycleSport(-1)

	case key.Matches(msg, s.keys.MoreEV):
		list.SetMinEVPercent(list.Filter().MinEVPercent + evStep)
		s.resetCursor()

	case key.Matches(msg, s.keys.LessEV):
		list.SetMinEVPercent(list.Filter().MinEVPercent - evStep)
		s.resetCursor()

	case key.Matches(msg, s.keys.Settings):
		return s, push(NewSettingsScreen(s.deps))
	}
	return s, nil
}

func (s *ListScreen) cycleSport(dir int) {
	sports := s.deps.List.AvailableSports()
	current := s.deps.List.Filter().Sport
	if current == "" {
		current = viewmodel.AllSports
	}
	idx := 0
	for i, sport := range sports {
		if sport == current {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(sports)) % len(sports)
	s.deps.List.SetSport(sports[idx])
	s.resetCursor()
}

func (s *ListScreen) resetCursor() {
	s.cursor, s.offset = 0, 0
}

func (s *ListScreen) clampCursor() {
	n := len(s.deps.List.FilteredSorted())
	if s.cursor >= n {
		s.cursor = max(n-1, 0)
	}
	s.scroll()
}

func (s *ListScreen) rows() int {
	return max(s.height-chromeLines, 3)
}

func (s *ListScreen) scroll() {
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+s.rows() {
		s.offset = s.cursor - s.rows() + 1
	}
}

// SetSize records the terminal size.
func (s *ListScreen) SetSize(width, height int) {
	s.width, s.height = width, height
	s.help.Width = width
	s.scroll()
}

// View renders the list.
func (s *ListScreen) View() string {
	list := s.deps.List
	state := list.State()
	items := list.FilteredSorted()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Polymarket Edge"))
	b.WriteString("\n")
	sport := state.Sport
	if sport == "" {
		sport = viewmodel.AllSports
	}
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Sport: %s   Min EV: %g%%   Showing %d of %d",
		sport, state.MinEVPercent, len(items), state.Total)))
	b.WriteString("\n\n")

	switch {
	case s.loading() && state.Total == 0:
		b.WriteString(s.spinner.View() + " Loading opportunities…\n")
	case state.Error != "" && !s.loading():
		b.WriteString(errorStyle.Render("Error: "+state.Error) + "\n")
		b.WriteString(warnStyle.Render("Press r to retry.") + "\n")
	case len(items) == 0:
		b.WriteString(subtitleStyle.Render("No opportunities match the current filter.") + "\n")
	default:
		if s.loading() {
			b.WriteString(s.spinner.View() + " Refreshing…\n")
		}
		s.writeRows(&b, items)
	}

	b.WriteString("\n")
	b.WriteString(s.help.View(listHelp{k: s.keys}))
	return frameStyle.Render(b.String())
}

func (s *ListScreen) writeRows(b *strings.Builder, items []model.Opportunity) {
	now := s.now()
	end := min(s.offset+s.rows(), len(items))
	titleWidth := max(s.width-40, 20)
	for i := s.offset; i < end; i++ {
		opp := items[i]
		ev := evStyle(opp.EVPercent).Render(fmt.Sprintf("%8s", format.Percent(opp.EVPercent, 2)))
		line := fmt.Sprintf("%s  %-6s %s  %s",
			ev, truncate(format.Text(opp.Sport), 6), truncate(opp.Title, titleWidth), format.Decimal(opp.Price, 2))
		if opp.Stale(now, model.DefaultStaleAfter) {
			line += " " + staleStyle.Render("stale")
		}
		if i == s.cursor {
			b.WriteString(selectedStyle.Render("› ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
}

func truncate(v string, width int) string {
	runes := []rune(v)
	if len(runes) <= width {
		return v + strings.Repeat(" ", width-len(runes))
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
