package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/momentum/internal/contracts"
)

var explainCmd = &cobra.Command{
	Use:   "explain [ticker]",
	Short: "Show every indicator behind one ticker's score",
	Long: `Fetches live data and prints the returns, moving averages, RSI,
volume ratio, ROC, valuation inputs and benchmark comparison that
produce the score. Nothing is cached or stored.

Example:
  go run ./cmd/momentum explain NVDA`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.svc.Explain(ctx, args[0])
	if err != nil {
		PrintError(err.Error())
		return err
	}
	if jsonOutput {
		return PrintJSON(b)
	}

	PrintHeader("Momentum Breakdown",
		[2]string{"Ticker", b.Ticker},
		[2]string{"As of", b.AsOf.Format("2006-01-02 15:04")},
		[2]string{"History", fmt.Sprintf("%d days", b.Points)},
	)
	PrintScores([]contracts.MomentumScore{b.Score})
	if b.Score.IsInsufficient() {
		PrintWarning("Not enough history for a score")
		return nil
	}

	const w = 16
	fmt.Println()
	PrintInfo(fmt.Sprintf("Price momentum %.1f", b.Price.Score))
	PrintKeyValue("Returns 1/3/6/12m", fmt.Sprintf("%.2f%% / %.2f%% / %.2f%% / %.2f%%",
		b.Price.Returns[0]*100, b.Price.Returns[1]*100, b.Price.Returns[2]*100, b.Price.Returns[3]*100), w)
	PrintKeyValue("SMA 20/50/200", fmt.Sprintf("%.2f / %.2f / %.2f", b.Price.SMA[0], b.Price.SMA[1], b.Price.SMA[2]), w)
	PrintKeyValue("Trend points", fmt.Sprintf("%.0f", b.Price.TrendPoints), w)

	PrintInfo(fmt.Sprintf("Technical momentum %.1f", b.Technical.Score))
	PrintKeyValue("RSI(14)", fmt.Sprintf("%.2f -> %.1f", b.Technical.RSI, b.Technical.RSIScore), w)
	PrintKeyValue("Volume ratio", fmt.Sprintf("%.2f -> %.1f", b.Technical.VolumeRatio, b.Technical.VolumeScore), w)
	PrintKeyValue("ROC(10)", fmt.Sprintf("%.2f%% -> %.1f", b.Technical.ROC, b.Technical.ROCScore), w)

	PrintInfo(fmt.Sprintf("Fundamental momentum %.1f", b.Fundamental))

	PrintInfo(fmt.Sprintf("Relative momentum %.1f", b.Relative.Score))
	PrintKeyValue("Ticker 1m", fmt.Sprintf("%.2f%%", b.Relative.TickerReturn*100), w)
	PrintKeyValue("Benchmark 1m", fmt.Sprintf("%.2f%%", b.Relative.BenchmarkReturn*100), w)
	return nil
}
