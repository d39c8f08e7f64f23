package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var topCmd = &cobra.Command{
	Use:   "top [tickers...]",
	Short: "Rank tickers by a score field",
	Long: `Scores the tickers as a batch and prints the best n, highest first.
Ties are broken by ticker; failed tickers are left out.

Fields: composite, price, technical, fundamental, relative, current_price

Example:
  go run ./cmd/momentum top AAPL MSFT NVDA AMZN -n 2
  go run ./cmd/momentum top --watchlist config/watchlist.yaml --field technical`,
	RunE: runTop,
}

var (
	topN         int
	topField     string
	topWatchlist string
)

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().IntVarP(&topN, "limit", "n", 10, "number of tickers to show")
	topCmd.Flags().StringVar(&topField, "field", "composite", "ranking field")
	topCmd.Flags().StringVar(&topWatchlist, "watchlist", "", "watchlist YAML file")
}

func runTop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tickers, err := resolveTickers(args, topWatchlist)
	if err != nil {
		return err
	}

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	top, err := a.svc.TopN(ctx, tickers, topN, topField)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	if jsonOutput {
		return PrintJSON(top)
	}

	PrintHeader(fmt.Sprintf("Top %d by %s", topN, topField),
		[2]string{"Universe", fmt.Sprintf("%d tickers", len(tickers))},
	)
	PrintScores(top)
	return nil
}
