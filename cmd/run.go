package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arb-engine/predictionarb/internal/app"
	"github.com/arb-engine/predictionarb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the cross-venue arbitrage engine",
	Long: `Starts the arbitrage engine, which will:
1. Discover matching markets on both venues and pair them up
2. Stream/poll prices from both venues
3. Evaluate cross-venue (S1/S2) arbitrage, and same-market (SM) arbitrage
   on whatever tickers BTC15MIN_TICKERS configures
4. Dual-leg execute whatever opportunity clears the profit bar
5. Track open positions and watch for venue resolution`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, &app.Options{})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
