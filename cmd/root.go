package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "predictionarb",
	Short: "Cross-venue prediction-market arbitrage bot",
	Long: `predictionarb watches a pair of prediction-market venues — an on-chain
CLOB-style venue and a centralized, order-book venue — for complementary
YES/NO mispricings across the two, and dual-leg executes whatever clears
the profit bar.

It discovers matching markets on both venues, streams/polls prices,
evaluates cross-venue and same-market arbitrage, and places both legs of
a trade concurrently so neither side is ever left unhedged for long.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
