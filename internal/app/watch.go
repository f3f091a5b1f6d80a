package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"polymarket-edge/internal/scheduler"
	"polymarket-edge/internal/service"
	"polymarket-edge/internal/storage"
	"polymarket-edge/internal/viewmodel"
)

// Watch runs the refresh loop at the refresh_interval setting until
// interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prefs, closeSettings, err := a.openSettings(ctx)
	if err != nil {
		return err
	}
	defer closeSettings()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; snapshots disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:     prefs.Values().RefreshInterval(),
		AlignToStart: a.Config.Watch.AlignToBucket,
		StartupDelay: a.Config.Watch.StartupDelay,
		Immediate:    true,
	}, a.Logger)
	if err != nil {
		return err
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}
	list := viewmodel.NewList(client, prefs.DefaultEVPercent(), a.Logger)
	defer list.Close()

	var snapshots storage.SnapshotStore
	var alertStore storage.AlertStore
	if store != nil {
		snapshots = store
		alertStore = store
	}

	svc := service.New(a.Config, sched, list, prefs, snapshots, alertStore, a.newNotifier(), a.Logger)

	a.Logger.Info().Dur("interval", sched.Interval()).Str("api", client.BaseURL()).Msg("starting watch")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch stopped")
	return nil
}
