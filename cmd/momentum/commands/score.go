package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/momentum/internal/contracts"
)

var scoreCmd = &cobra.Command{
	Use:   "score [tickers...]",
	Short: "Resolve momentum scores through every tier",
	Long: `Resolves scores from memory, then the durable store, then live data.
Live results are written back to the store before the command exits.

Example:
  go run ./cmd/momentum score AAPL
  go run ./cmd/momentum score AAPL MSFT NVDA --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScore,
}

var cachedCmd = &cobra.Command{
	Use:   "cached [tickers...]",
	Short: "Read scores from cache tiers only (no live fetch)",
	Long: `Looks tickers up in memory and the durable store without calling
the market data provider, and lists the tickers with no stored score.

Example:
  go run ./cmd/momentum cached AAPL MSFT
  go run ./cmd/momentum cached --watchlist config/watchlist.yaml`,
	RunE: runCached,
}

var (
	scoreTimeout    time.Duration
	cachedWatchlist string
)

func init() {
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(cachedCmd)

	scoreCmd.Flags().DurationVar(&scoreTimeout, "timeout", 2*time.Minute, "overall timeout")
	cachedCmd.Flags().StringVar(&cachedWatchlist, "watchlist", "", "watchlist YAML file")
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), scoreTimeout)
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		score, err := a.svc.GetScore(ctx, args[0])
		if err != nil {
			PrintError(err.Error())
			return err
		}
		if jsonOutput {
			return PrintJSON(score)
		}
		PrintHeader("Momentum Score", [2]string{"Ticker", score.Ticker})
		PrintScores([]contracts.MomentumScore{score})
		return nil
	}

	tickers, err := resolveTickers(args, "")
	if err != nil {
		return err
	}
	scores := a.svc.GetScores(ctx, tickers)
	if jsonOutput {
		return PrintJSON(scores)
	}

	PrintHeader("Momentum Scores", [2]string{"Tickers", fmt.Sprintf("%d", len(tickers))})
	PrintScores(orderedScores(tickers, scores))
	if missing := len(tickers) - len(scores); missing > 0 {
		PrintWarning(fmt.Sprintf("%d ticker(s) could not be scored (see logs)", missing))
	}
	return nil
}

func runCached(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tickers, err := resolveTickers(args, cachedWatchlist)
	if err != nil {
		return err
	}

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	found, missing := a.svc.GetCachedScores(ctx, tickers)
	if jsonOutput {
		return PrintJSON(map[string]interface{}{"scores": found, "missing": missing})
	}

	PrintHeader("Cached Scores",
		[2]string{"Store", a.cfg.Store.Backend},
		[2]string{"Found", fmt.Sprintf("%d/%d", len(found), len(tickers))},
	)
	PrintScores(orderedScores(tickers, found))
	if len(missing) > 0 {
		PrintInfo(fmt.Sprintf("Not cached: %v", missing))
	}
	return nil
}
