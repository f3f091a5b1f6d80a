package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"polymarket-edge/internal/apiclient"
)

// ErrDeveloperModeOff is returned by developer-only commands.
var ErrDeveloperModeOff = errors.New("developer mode is off; enable it with: polyedge settings set developer_mode true")

// Trace prints the debug record for one opportunity. It requires developer mode.
func (a *App) Trace(ctx context.Context, id string) error {
	prefs, closeSettings, err := a.openSettings(ctx)
	if err != nil {
		return err
	}
	defer closeSettings()
	if !prefs.DeveloperMode() {
		return ErrDeveloperModeOff
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}
	trace, err := client.FetchOpportunityTrace(ctx, id)
	if errors.Is(err, apiclient.ErrNotFound) {
		return fmt.Errorf("opportunity %q not found", id)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trace: %w", err)
	}
	fmt.Fprintln(a.Out, string(out))
	return nil
}

// Status prints API health and feed freshness.
func (a *App) Status(ctx context.Context) error {
	client, err := a.newClient()
	if err != nil {
		return err
	}
	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check %s: %w", client.BaseURL(), err)
	}
	feed, err := client.FetchOpportunitiesMeta(ctx)
	if err != nil {
		return err
	}

	staleness := "-"
	if feed.StalenessSeconds != nil {
		staleness = fmt.Sprintf("%.0fs", *feed.StalenessSeconds)
	}
	fmt.Fprintf(a.Out, "api: %s (%s)\nas of: %s\nstaleness: %s\nopportunities: %d\n",
		client.BaseURL(), health.Status, feed.AsOf, staleness, len(feed.Items))
	return nil
}
