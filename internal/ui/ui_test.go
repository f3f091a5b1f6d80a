package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-edge/internal/model"
	"polymarket-edge/internal/settings"
	"polymarket-edge/internal/viewmodel"
)

type fakeAPI struct {
	items []model.Opportunity
	err   error
	trace model.Trace
}

func (f *fakeAPI) FetchOpportunities(context.Context) ([]model.Opportunity, error) {
	return f.items, f.err
}

func (f *fakeAPI) FetchOpportunityTrace(_ context.Context, id string) (model.Trace, error) {
	if id != f.trace.ID {
		return model.Trace{}, errors.New("not found")
	}
	return f.trace, nil
}

func newDeps(t *testing.T, api *fakeAPI) Deps {
	t.Helper()
	store, err := settings.Open(context.Background(), settings.NewMemoryBackend(), zerolog.Nop())
	require.NoError(t, err)
	list := viewmodel.NewList(api, 0, zerolog.Nop())
	t.Cleanup(list.Close)
	return Deps{Ctx: context.Background(), List: list, Settings: store, Traces: api, Logger: zerolog.Nop()}
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// run executes cmd and feeds its message back, the way the event loop would.
func run(t *testing.T, s Screen, cmd tea.Cmd) Screen {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := s.Update(cmd())
	return next
}

func sampleItems() []model.Opportunity {
	return []model.Opportunity{
		{ID: "1", Title: "Chiefs beat Bills?", Sport: model.String("NFL"), EVPercent: model.Float(0.10)},
		{ID: "2", Title: "Celtics beat Lakers?", Sport: model.String("NBA")},
		{ID: "3", Title: "Bills cover?", Sport: model.String("NFL"), EVPercent: model.Float(0.20)},
	}
}

func loadedList(t *testing.T, api *fakeAPI) (*ListScreen, Deps) {
	t.Helper()
	deps := newDeps(t, api)
	screen := NewListScreen(deps)
	screen.SetSize(120, 40)
	run(t, screen, screen.load())
	return screen, deps
}

func TestListShowsSortedRows(t *testing.T) {
	screen, _ := loadedList(t, &fakeAPI{items: sampleItems()})
	view := screen.View()

	assert.Contains(t, view, "Showing 3 of 3")
	first := strings.Index(view, "Bills cover?")
	second := strings.Index(view, "Chiefs beat Bills?")
	third := strings.Index(view, "Celtics beat Lakers?")
	require.True(t, first >= 0 && second >= 0 && third >= 0)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestListThresholdAndSportKeys(t *testing.T) {
	screen, deps := loadedList(t, &fakeAPI{items: sampleItems()})

	for i := 0; i < 10; i++ {
		screen.Update(keyRunes("+"))
	}
	assert.Equal(t, 5.0, deps.List.Filter().MinEVPercent)
	assert.Equal(t, []string{"3", "1"}, ids(deps.List.FilteredSorted()))

	screen.Update(keyRunes("-"))
	assert.Equal(t, 4.5, deps.List.Filter().MinEVPercent)

	screen.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "NBA", deps.List.Filter().Sport)
	screen.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "NFL", deps.List.Filter().Sport)
	screen.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "", deps.List.Filter().Sport, "wraps back to All")
	screen.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "NFL", deps.List.Filter().Sport)
}

func TestListErrorAndRetry(t *testing.T) {
	api := &fakeAPI{err: errors.New("edge api error (503)")}
	screen, deps := loadedList(t, api)

	view := screen.View()
	assert.Contains(t, view, "Error: edge api error (503)")
	assert.Contains(t, view, "Press r to retry")

	api.err = nil
	api.items = sampleItems()
	_, cmd := screen.Update(keyRunes("r"))
	run(t, screen, cmd)
	assert.Equal(t, 3, deps.List.State().Total)
	assert.NotContains(t, screen.View(), "Error:")
}

func TestListScrollingLoadsMore(t *testing.T) {
	items := make([]model.Opportunity, 120)
	for i := range items {
		items[i] = model.Opportunity{ID: fmt.Sprint(i), Title: fmt.Sprint("m", i), EVPercent: model.Float(float64(200-i) / 1000)}
	}
	screen, deps := loadedList(t, &fakeAPI{items: items})
	require.Equal(t, viewmodel.PageSize, deps.List.State().VisibleCount)

	for i := 0; i < 39; i++ {
		screen.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, viewmodel.PageSize, deps.List.State().VisibleCount)
	screen.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2*viewmodel.PageSize, deps.List.State().VisibleCount)
	assert.Contains(t, screen.View(), "m40")
}

func TestRouterPushesDetailAndPops(t *testing.T) {
	deps := newDeps(t, &fakeAPI{items: sampleItems()})
	list := NewListScreen(deps)
	router := NewRouter(list)
	router.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	router.Update(list.load()())

	_, cmd := router.Update(tea.KeyMsg{Type: tea.KeyEnter})
	router.Update(cmd())
	require.Equal(t, 2, router.Depth())
	assert.Contains(t, router.View(), "Bills cover?")
	assert.Contains(t, router.View(), "20.00%")
	assert.NotContains(t, router.View(), "Developer")

	_, cmd = router.Update(tea.KeyMsg{Type: tea.KeyEsc})
	router.Update(cmd())
	assert.Equal(t, 1, router.Depth())
}

func TestDetailDeveloperTrace(t *testing.T) {
	api := &fakeAPI{trace: model.Trace{
		Opportunity: model.Opportunity{ID: "1"},
		TraceInfo:   map[string]any{"fair_source": "draftkings"},
	}}
	deps := newDeps(t, api)
	require.NoError(t, deps.Settings.SetDeveloperMode(context.Background(), true))

	opp := sampleItems()[0]
	opp.MarketID = model.String("kc-buf-ml")
	screen := NewDetailScreen(deps, opp)
	view := screen.View()
	assert.Contains(t, view, "Developer")
	assert.Contains(t, view, "kc-buf-ml")

	_, cmd := screen.Update(keyRunes("t"))
	assert.Contains(t, screen.View(), "Loading trace")
	run(t, screen, cmd)
	assert.Contains(t, screen.View(), "fair_source")
	assert.Contains(t, screen.View(), `"draftkings"`)
}

func TestDetailTraceIgnoredOutsideDeveloperMode(t *testing.T) {
	deps := newDeps(t, &fakeAPI{})
	screen := NewDetailScreen(deps, sampleItems()[0])
	_, cmd := screen.Update(keyRunes("t"))
	assert.Nil(t, cmd)
}

func TestSettingsScreenAdjusts(t *testing.T) {
	deps := newDeps(t, &fakeAPI{})
	screen := NewSettingsScreen(deps)

	_, cmd := screen.Update(tea.KeyMsg{Type: tea.KeyRight})
	run(t, screen, cmd)
	assert.Equal(t, 0.026, deps.Settings.FeeCushion())

	screen.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd = screen.Update(tea.KeyMsg{Type: tea.KeyLeft})
	run(t, screen, cmd)
	assert.Equal(t, 540.0, deps.Settings.RefreshIntervalSeconds())

	screen.Update(tea.KeyMsg{Type: tea.KeyDown})
	screen.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd = screen.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	run(t, screen, cmd)
	assert.True(t, deps.Settings.DeveloperMode())
	assert.Contains(t, screen.View(), "true")
}

func TestSettingsChangeUpdatesListThreshold(t *testing.T) {
	screen, deps := loadedList(t, &fakeAPI{items: sampleItems()})
	require.NoError(t, deps.Settings.SetDefaultEVPercent(context.Background(), 15))

	screen.Update(settingsChangedMsg{change: settings.Change{
		Key:    settings.KeyDefaultEVPercent,
		Values: deps.Settings.Values(),
	}})
	assert.Equal(t, []string{"3"}, ids(deps.List.FilteredSorted()))
}

func ids(items []model.Opportunity) []string {
	out := make([]string, len(items))
	for i, o := range items {
		out[i] = o.ID
	}
	return out
}
