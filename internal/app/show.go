package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"polymarket-edge/internal/format"
	"polymarket-edge/internal/model"
	"polymarket-edge/internal/settings"
	"polymarket-edge/internal/viewmodel"
)

// Show prints the filtered, sorted opportunity view.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	prefs, closeSettings, err := a.openSettings(ctx)
	if err != nil {
		return err
	}
	defer closeSettings()

	client, err := a.newClient()
	if err != nil {
		return err
	}

	list := viewmodel.NewList(client, minEV(opts.MinEVPercent, prefs), a.Logger)
	defer list.Close()
	list.SetSport(opts.Sport)

	if err := list.Load(ctx); err != nil {
		return err
	}

	items := list.FilteredSorted()
	// Page the window forward until it covers the requested limit.
	for opts.Limit > len(items) && len(items) > 0 && list.LoadMoreIfNeeded(&items[len(items)-1]) {
		items = list.FilteredSorted()
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	if len(items) == 0 {
		fmt.Fprintln(a.Out, "no opportunities match the current filter")
		return nil
	}

	state := list.State()
	fmt.Fprintf(a.Out, "%d of %d opportunities (sport: %s, min EV: %s%%)\n",
		len(items), state.Total, sportLabel(state.Sport), trimFloat(state.MinEVPercent))
	writeTable(a.Out, items, prefs.DeveloperMode(), time.Now())
	return nil
}

func writeTable(out io.Writer, items []model.Opportunity, developer bool, now time.Time) {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := "EV%\tSport\tTitle\tPrice\tEV/share\tUpdated\tStale"
	if developer {
		header += "\tID\tBasis"
	}
	fmt.Fprintln(writer, header)

	for _, opp := range items {
		stale := ""
		if opp.Stale(now, model.DefaultStaleAfter) {
			stale = "stale"
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s",
			format.Percent(opp.EVPercent, 2),
			format.Text(opp.Sport),
			sanitizeInline(opp.Title),
			format.Decimal(opp.Price, 3),
			format.Decimal(opp.EVUSDPerShare, 4),
			format.DateTime(opp.UpdatedAt),
			stale,
		)
		if developer {
			fmt.Fprintf(writer, "\t%s\t%s", opp.ID, format.Text(opp.ComparisonBasis))
		}
		fmt.Fprintln(writer)
	}

	writer.Flush()
}

func minEV(override *float64, prefs *settings.Store) float64 {
	if override != nil {
		return *override
	}
	return prefs.DefaultEVPercent()
}

func sportLabel(sport string) string {
	if sport == "" {
		return viewmodel.AllSports
	}
	return sport
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
