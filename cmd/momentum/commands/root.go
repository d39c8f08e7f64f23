package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env        string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "momentum",
	Short: "Momentum score service",
	Long: `Momentum score service CLI

Scores tickers 0-100 from price, technical, fundamental and relative
momentum, resolving through memory, the durable store and live data.

Usage:
  go run ./cmd/momentum [command]

Examples:
  go run ./cmd/momentum score AAPL MSFT
  go run ./cmd/momentum top --watchlist config/watchlist.yaml -n 5
  go run ./cmd/momentum serve
  go run ./cmd/momentum migrate`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}
