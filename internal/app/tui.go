package app

import (
	"context"
	"os/signal"
	"syscall"

	"polymarket-edge/internal/ui"
	"polymarket-edge/internal/viewmodel"
)

// TUI runs the interactive terminal front end.
func (a *App) TUI(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	prefs, closeSettings, err := a.openSettings(ctx)
	if err != nil {
		return err
	}
	defer closeSettings()

	client, err := a.newClient()
	if err != nil {
		return err
	}

	list := viewmodel.NewList(client, prefs.DefaultEVPercent(), a.Logger)
	defer list.Close()

	a.Logger.Info().Str("api", client.BaseURL()).Msg("starting tui")
	return ui.Run(ctx, ui.Deps{
		List:     list,
		Settings: prefs,
		Traces:   client,
		Logger:   a.Logger,
	})
}
