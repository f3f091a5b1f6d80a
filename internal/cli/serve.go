package cli

import (
	"github.com/spf13/cobra"

	"polymarket-edge/internal/app"
)

var (
	serveAddr      string
	serveFile      string
	serveFailFirst int
)

var serveFixturesCmd = &cobra.Command{
	Use:   "serve-fixtures",
	Short: "Serve the edge API from fixture data for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ServeFixtures(cmd.Context(), app.ServeOptions{
			Addr:      serveAddr,
			Path:      serveFile,
			FailFirst: serveFailFirst,
		})
	},
}

func init() {
	serveFixturesCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to fixtures.addr)")
	serveFixturesCmd.Flags().StringVar(&serveFile, "file", "", "YAML or JSON fixture file (defaults to built-in samples)")
	serveFixturesCmd.Flags().IntVar(&serveFailFirst, "fail-first", 0, "Answer the first N API requests with 503")
}
