package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"polymarket-edge/internal/app"
)

var (
	showSport string
	showMinEV float64
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the filtered, sorted opportunity list",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}

		opts := app.ShowOptions{
			Sport: showSport,
			Limit: showLimit,
		}
		if cmd.Flags().Changed("min-ev") {
			if showMinEV < 0 {
				return fmt.Errorf("--min-ev must not be negative")
			}
			opts.MinEVPercent = &showMinEV
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showSport, "sport", "", "Only show this sport (e.g. NFL); empty or All shows every sport")
	showCmd.Flags().Float64Var(&showMinEV, "min-ev", 0, "Minimum EV in percent (defaults to the default_ev_percent setting)")
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "Maximum rows to print, up to 1000 (0 prints the first 50)")
}
