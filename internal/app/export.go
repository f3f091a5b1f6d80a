package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"

	"polymarket-edge/internal/model"
	"polymarket-edge/internal/viewmodel"
)

// maxChartBars bounds the PNG to a readable number of bars.
const maxChartBars = 25

// Export renders the filtered opportunity view as CSV and/or a PNG bar chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	prefs, closeSettings, err := a.openSettings(ctx)
	if err != nil {
		return err
	}
	defer closeSettings()

	items, err := a.exportSource(ctx, opts.FromSnapshots)
	if err != nil {
		return err
	}

	filter := viewmodel.Filter{Sport: opts.Sport, MinEVPercent: minEV(opts.MinEVPercent, prefs)}
	rows := viewmodel.FilterSort(items, filter, opts.MaxRows)
	if len(rows) == 0 {
		a.Logger.Info().Msg("no opportunities match the export filter")
		return nil
	}
	a.Logger.Info().Int("total", len(items)).Int("exported", len(rows)).Msg("exporting opportunities")

	if opts.CSVPath != "" {
		if err := writeOpportunitiesCSV(opts.CSVPath, rows); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeOpportunitiesPNG(opts.PNGPath, rows); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) exportSource(ctx context.Context, fromSnapshots bool) ([]model.Opportunity, error) {
	if fromSnapshots {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, errors.New("database not configured; cannot export snapshots")
		}
		defer closeStore()

		snapshots, err := store.ListLatestSnapshot(ctx, a.Config.Export.MaxRows)
		if err != nil {
			return nil, err
		}
		items := make([]model.Opportunity, len(snapshots))
		for i, snap := range snapshots {
			items[i] = snap.Opportunity()
		}
		return items, nil
	}

	client, err := a.newClient()
	if err != nil {
		return nil, err
	}
	list := viewmodel.NewList(client, 0, a.Logger)
	defer list.Close()
	if err := list.Load(ctx); err != nil {
		return nil, err
	}
	return list.All(), nil
}

func writeOpportunitiesCSV(path string, items []model.Opportunity) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"id", "source", "title", "sport", "event_id", "market_id", "yes_probability", "price", "ev_usd_per_share", "ev_percent", "updated_at", "comparison_basis", "is_stale"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, opp := range items {
		record := []string{
			opp.ID,
			opp.Source,
			opp.Title,
			csvString(opp.Sport),
			csvString(opp.EventID),
			csvString(opp.MarketID),
			csvFloat(opp.YesProbability),
			csvFloat(opp.Price),
			csvFloat(opp.EVUSDPerShare),
			csvFloat(opp.EVPercent),
			csvString(opp.UpdatedAt),
			csvString(opp.ComparisonBasis),
			csvBool(opp.IsStale),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeOpportunitiesPNG(path string, items []model.Opportunity) error {
	bars := make([]chart.Value, 0, maxChartBars)
	for _, opp := range items {
		if len(bars) == maxChartBars {
			break
		}
		if opp.EVPercent == nil || *opp.EVPercent <= 0 {
			continue
		}
		bars = append(bars, chart.Value{
			Label: chartLabel(opp),
			Value: *opp.EVPercent * 100,
		})
	}
	if len(bars) == 0 {
		return errors.New("no positive EV values to chart")
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	graph := chart.BarChart{
		Title:      "Expected value by market (%)",
		Width:      1280,
		Height:     720,
		BarWidth:   30,
		BarSpacing: 10,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f%%")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func chartLabel(opp model.Opportunity) string {
	label := opp.Title
	if opp.Sport != nil {
		label = *opp.Sport + " " + label
	}
	runes := []rune(label)
	if len(runes) > 18 {
		return string(runes[:17]) + "…"
	}
	return label
}

func csvString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func csvBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
