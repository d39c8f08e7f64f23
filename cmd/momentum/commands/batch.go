package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/momentum/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch [tickers...]",
	Short: "Compute scores for many tickers on a bounded worker pool",
	Long: `Runs the batch coordinator: tickers are processed in chunks, each
item under its own timeout, and every ticker gets an outcome.

Example:
  go run ./cmd/momentum batch AAPL MSFT NVDA --workers 5
  go run ./cmd/momentum batch --watchlist config/watchlist.yaml --refresh`,
	RunE: runBatch,
}

var compareCmd = &cobra.Command{
	Use:   "compare [tickers...]",
	Short: "Time a sequential run against a concurrent run",
	Long: `Recomputes the same tickers twice from live data, once with a single
worker and once with --workers, and reports the speedup.

Example:
  go run ./cmd/momentum compare --watchlist config/watchlist.yaml --workers 10`,
	RunE: runCompare,
}

type batchFlags struct {
	watchlist   string
	workers     int
	batchSize   int
	itemTimeout time.Duration
	refresh     bool
}

var (
	batchOpts   batchFlags
	compareOpts batchFlags
)

func (f batchFlags) options() batch.Options {
	return batch.Options{
		MaxWorkers:  f.workers,
		BatchSize:   f.batchSize,
		ItemTimeout: f.itemTimeout,
		Refresh:     f.refresh,
	}
}

func addBatchFlags(cmd *cobra.Command, f *batchFlags) {
	cmd.Flags().StringVar(&f.watchlist, "watchlist", "", "watchlist YAML file")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "max concurrent workers (default BATCH_MAX_WORKERS, cap 20)")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "tickers per chunk (default BATCH_SIZE)")
	cmd.Flags().DurationVar(&f.itemTimeout, "item-timeout", 0, "per-ticker timeout (default BATCH_ITEM_TIMEOUT)")
}

func init() {
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(compareCmd)

	addBatchFlags(batchCmd, &batchOpts)
	batchCmd.Flags().BoolVar(&batchOpts.refresh, "refresh", false, "skip cached copies and recompute")
	addBatchFlags(compareCmd, &compareOpts)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tickers, err := resolveTickers(args, batchOpts.watchlist)
	if err != nil {
		return err
	}

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.svc.BatchCompute(ctx, tickers, batchOpts.options())
	if jsonOutput {
		return PrintJSON(res)
	}

	PrintHeader("Batch Compute",
		[2]string{"Batch ID", res.ID.String()},
		[2]string{"Tickers", fmt.Sprintf("%d", res.Requested)},
		[2]string{"Workers", fmt.Sprintf("%d", res.Workers)},
	)
	PrintScores(batch.Rank(res.Scores(), len(tickers), batch.FieldComposite))
	printFailures(res)

	fmt.Println()
	PrintSuccess(fmt.Sprintf("%d succeeded (%d cached), %d failed in %.2fs (%.1f/s)",
		res.Succeeded, res.CacheHits, res.Failed, res.Elapsed.Seconds(), res.Throughput()))
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tickers, err := resolveTickers(args, compareOpts.watchlist)
	if err != nil {
		return err
	}

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cmp := a.svc.Compare(ctx, tickers, compareOpts.options())
	if jsonOutput {
		return PrintJSON(cmp)
	}

	PrintHeader("Sequential vs Concurrent", [2]string{"Tickers", fmt.Sprintf("%d", cmp.Tickers)})
	PrintKeyValue("Sequential", fmt.Sprintf("%.2fs (1 worker)", cmp.Sequential.Seconds()), 12)
	PrintKeyValue("Concurrent", fmt.Sprintf("%.2fs (%d workers)", cmp.Concurrent.Seconds(), cmp.Workers), 12)
	PrintKeyValue("Speedup", fmt.Sprintf("%.2fx", cmp.Speedup), 12)
	printFailures(cmp.ConcurrentResult)
	return nil
}

func printFailures(res *batch.Result) {
	errs := res.Errors()
	if len(errs) == 0 {
		return
	}

	tickers := make([]string, 0, len(errs))
	for t := range errs {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	PrintWarning(fmt.Sprintf("%d ticker(s) failed", len(errs)))
	for _, t := range tickers {
		PrintError(fmt.Sprintf("%s: %v", t, errs[t]))
	}
}
