package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"polymarket-edge/internal/app"
)

var (
	simulateEV    float64
	simulateTitle string
	simulateSport string
	simulatePrice float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Push a synthetic opportunity through the configured alert channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateEV <= 0 {
			return errors.New("--ev must be greater than 0")
		}
		if simulatePrice < 0 || simulatePrice > 1 {
			return errors.New("--price must be between 0 and 1")
		}

		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Title:     simulateTitle,
			Sport:     simulateSport,
			EVPercent: simulateEV,
			Price:     simulatePrice,
		})
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateEV, "ev", 0, "EV of the synthetic opportunity, in percent")
	simulateCmd.Flags().StringVar(&simulateTitle, "title", "Simulated opportunity", "Market title")
	simulateCmd.Flags().StringVar(&simulateSport, "sport", "", "Sport label")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Yes price between 0 and 1")
}
