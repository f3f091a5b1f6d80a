package app

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"polymarket-edge/internal/apiclient"
	"polymarket-edge/internal/format"
)

// Odds prints sportsbook lines for one sport key, e.g. americanfootball_nfl.
func (a *App) Odds(ctx context.Context, sport string) error {
	client, err := a.newClient()
	if err != nil {
		return err
	}

	events, err := client.FetchOdds(ctx, sport)
	if errors.Is(err, apiclient.ErrNotFound) {
		return fmt.Errorf("no odds for sport %q", sport)
	}
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(a.Out, "no events found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Event\tBook\tMarket\tSide\tAmerican\tDecimal\tPoint\tFair%\tFair decimal")
	for _, event := range events {
		for _, line := range event.Lines {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				sanitizeInline(event.Title),
				line.Bookmaker,
				line.Market,
				sanitizeInline(line.Side),
				format.AmericanOdds(line.AmericanOdds),
				format.Decimal(line.DecimalOdds, 2),
				format.Decimal(line.Point, 1),
				format.Percent(line.FairProbability, 1),
				format.Decimal(line.FairDecimalOdds, 2),
			)
		}
	}
	writer.Flush()
	return nil
}
