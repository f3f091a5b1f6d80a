package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"polymarket-edge/internal/apiclient"
	"polymarket-edge/internal/model"
	"polymarket-edge/internal/service"
	"polymarket-edge/internal/viewmodel"
)

// SimulateAlert pushes one synthetic opportunity through the watch
// pipeline so the configured alert channels fire.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	prefs, closeSettings, err := a.openSettings(ctx)
	if err != nil {
		return err
	}
	defer closeSettings()
	if prefs.DefaultEVPercent() <= 0 {
		return errors.New("default_ev_percent is 0; alerts need a positive threshold")
	}

	now := time.Now().UTC()
	opp := model.Opportunity{
		ID:        "simulated:" + uuid.NewString(),
		Source:    "simulated",
		Title:     opts.Title,
		EVPercent: model.Float(opts.EVPercent / 100),
		UpdatedAt: model.String(now.Format(time.RFC3339)),
		IsStale:   model.Bool(false),
	}
	if opts.Sport != "" {
		opp.Sport = model.String(opts.Sport)
	}
	if opts.Price > 0 {
		opp.Price = model.Float(opts.Price)
	}

	list := viewmodel.NewList(&staticFetcher{items: []model.Opportunity{opp}}, 0, a.Logger)
	defer list.Close()

	svc := service.New(a.Config, nil, list, prefs, nil, nil, notifier, a.Logger)
	return svc.ProcessTick(ctx, now)
}

type staticFetcher struct {
	items []model.Opportunity
}

func (s *staticFetcher) FetchOpportunities(ctx context.Context) ([]model.Opportunity, error) {
	return s.items, nil
}

var _ apiclient.OpportunityFetcher = (*staticFetcher)(nil)
