// Package ui is the terminal front end: a list of opportunities, a detail
// screen and a settings screen, all bound to the view-models.
package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"polymarket-edge/internal/model"
	"polymarket-edge/internal/settings"
	"polymarket-edge/internal/viewmodel"
)

// TraceFetcher loads the developer trace for one opportunity.
type TraceFetcher interface {
	FetchOpportunityTrace(ctx context.Context, id string) (model.Trace, error)
}

// Deps are the objects the screens bind to.
type Deps struct {
	// Ctx bounds every fetch started by the UI.
	Ctx      context.Context
	List     *viewmodel.List
	Settings *settings.Store
	Traces   TraceFetcher
	Logger   zerolog.Logger
}

type loadedMsg struct{ err error }

type traceMsg struct {
	id    string
	trace model.Trace
	err   error
}

type settingsChangedMsg struct{ change settings.Change }

type settingSavedMsg struct {
	key string
	err error
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, deps Deps) error {
	deps.Ctx = ctx
	deps.Logger = deps.Logger.With().Str("component", "tui").Logger()

	program := tea.NewProgram(NewRouter(NewListScreen(deps)), tea.WithAltScreen(), tea.WithContext(ctx))

	// Send blocks until the event loop reads the message, and Set can run
	// inside a command, so forward from a separate goroutine.
	unsubscribe := deps.Settings.Subscribe(func(change settings.Change) {
		go program.Send(settingsChangedMsg{change: change})
	})
	defer unsubscribe()

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
