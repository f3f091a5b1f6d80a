package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"polymarket-edge/internal/format"
	"polymarket-edge/internal/model"
	"polymarket-edge/internal/viewmodel"
)

// DetailScreen shows one opportunity.
type DetailScreen struct {
	deps   Deps
	detail *viewmodel.Detail
	keys   KeyMap
	help   help.Model
	now    func() time.Time

	traceLoading bool
	trace        *model.Trace
	traceErr     error
}

// NewDetailScreen wraps opp in a detail view-model.
func NewDetailScreen(deps Deps, opp model.Opportunity) *DetailScreen {
	return &DetailScreen{
		deps:   deps,
		detail: viewmodel.NewDetail(opp),
		keys:   DefaultKeyMap(),
		help:   help.New(),
		now:    time.Now,
	}
}

// Init does nothing; the record is already loaded.
func (s *DetailScreen) Init() tea.Cmd { return nil }

func (s *DetailScreen) developer() bool {
	return s.deps.Settings.DeveloperMode()
}

// Update handles navigation and trace loading.
func (s *DetailScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case traceMsg:
		if msg.id != s.detail.Opportunity().ID {
			return s, nil
		}
		s.traceLoading = false
		s.traceErr = msg.err
		if msg.err == nil {
			trace := msg.trace
			s.trace = &trace
		}
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keys.Quit):
			return s, tea.Quit
		case key.Matches(msg, s.keys.Back):
			return s, pop
		case key.Matches(msg, s.keys.Trace):
			if !s.developer() || s.deps.Traces == nil || s.traceLoading {
				return s, nil
			}
			s.traceLoading = true
			return s, s.fetchTrace()
		}
	}
	return s, nil
}

func (s *DetailScreen) fetchTrace() tea.Cmd {
	id := s.detail.Opportunity().ID
	traces, ctx := s.deps.Traces, s.deps.Ctx
	return func() tea.Msg {
		trace, err := traces.FetchOpportunityTrace(ctx, id)
		return traceMsg{id: id, trace: trace, err: err}
	}
}

// SetSize records the terminal width for the help bar.
func (s *DetailScreen) SetSize(width, height int) {
	s.help.Width = width
}

// View renders the record.
func (s *DetailScreen) View() string {
	opp := s.detail.Opportunity()
	var b strings.Builder

	b.WriteString(titleStyle.Render(opp.Title))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Source", opp.Source)
	row("Sport", format.Text(opp.Sport))
	b.WriteString(labelStyle.Render("EV") + evStyle(opp.EVPercent).Render(format.Percent(opp.EVPercent, 2)) + "\n")
	row("EV per share", format.Decimal(opp.EVUSDPerShare, 4)+" USD")
	row("Price", format.Decimal(opp.Price, 3))
	row("Yes probability", format.Percent(opp.YesProbability, 1))
	row("Updated", format.DateTime(opp.UpdatedAt))
	if opp.Stale(s.now(), model.DefaultStaleAfter) {
		b.WriteString(staleStyle.Render("This price may be stale.") + "\n")
	}

	if s.developer() {
		b.WriteString("\n" + subtitleStyle.Render("Developer") + "\n")
		row("ID", opp.ID)
		row("Market", format.Text(opp.MarketID))
		row("Event", format.Text(opp.EventID))
		row("Updated (raw)", format.Text(opp.UpdatedAt))
		row("Age", format.Age(opp.UpdatedAt, s.now()))
		row("Basis", format.Text(opp.ComparisonBasis))
		s.writeTrace(&b)
	}

	b.WriteString("\n")
	b.WriteString(s.help.View(detailHelp{k: s.keys, developer: s.developer()}))
	return frameStyle.Render(b.String())
}

func (s *DetailScreen) writeTrace(b *strings.Builder) {
	switch {
	case s.traceLoading:
		b.WriteString(subtitleStyle.Render("Loading trace…") + "\n")
	case s.traceErr != nil:
		b.WriteString(errorStyle.Render("Trace: "+s.traceErr.Error()) + "\n")
	case s.trace != nil:
		b.WriteString("\n" + subtitleStyle.Render("Trace") + "\n")
		keys := make([]string, 0, len(s.trace.TraceInfo))
		for k := range s.trace.TraceInfo {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			raw, err := json.Marshal(s.trace.TraceInfo[k])
			value := string(raw)
			if err != nil {
				value = fmt.Sprint(s.trace.TraceInfo[k])
			}
			b.WriteString(labelStyle.Render(k) + valueStyle.Render(value) + "\n")
		}
	}
}
