package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"polymarket-edge/internal/app"
)

var (
	exportPNGPath   string
	exportCSVPath   string
	exportMaxRows   int
	exportSport     string
	exportMinEV     float64
	exportSnapshots bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered opportunity list as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			PNGPath:       exportPNGPath,
			CSVPath:       exportCSVPath,
			MaxRows:       exportMaxRows,
			Sport:         exportSport,
			FromSnapshots: exportSnapshots,
		}
		if cmd.Flags().Changed("min-ev") {
			if exportMinEV < 0 {
				return errors.New("--min-ev must not be negative")
			}
			opts.MinEVPercent = &exportMinEV
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0, "Maximum rows to export (defaults to config)")
	exportCmd.Flags().StringVar(&exportSport, "sport", "", "Only export this sport")
	exportCmd.Flags().Float64Var(&exportMinEV, "min-ev", 0, "Minimum EV in percent (defaults to the default_ev_percent setting)")
	exportCmd.Flags().BoolVar(&exportSnapshots, "snapshots", false, "Export the latest stored snapshot instead of fetching")
}
