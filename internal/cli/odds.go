package cli

import (
	"github.com/spf13/cobra"
)

var oddsCmd = &cobra.Command{
	Use:   "odds <sport>",
	Short: "Print sportsbook lines for a sport key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Odds(cmd.Context(), args[0])
	},
}
