package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to the store, Redis and the data provider",
	Long: `Loads configuration, then verifies every dependency the service uses:

- PostgreSQL ping, health check and pool statistics (STORE_BACKEND=postgres)
- Redis ping (REDIS_ENABLED=true)
- A live fetch of the benchmark ticker through the provider

Example:
  go run ./cmd/momentum check
  go run ./cmd/momentum check --env production`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	defer a.Close()

	PrintHeader("Dependency Check",
		[2]string{"Env", a.cfg.Env},
		[2]string{"Store", a.cfg.Store.Backend},
	)

	failed := 0

	if a.db != nil {
		PrintKeyValue("Database URL", redactURL(a.cfg.Database.URL), 14)
		status, err := a.db.HealthCheck(ctx)
		if err != nil {
			PrintError(fmt.Sprintf("PostgreSQL: %v", err))
			failed++
		} else {
			PrintSuccess(fmt.Sprintf("PostgreSQL healthy (%v)", status.ResponseTime))
			PrintKeyValue("Max conns", fmt.Sprintf("%d", status.Stats.MaxConns), 14)
			PrintKeyValue("Total conns", fmt.Sprintf("%d", status.Stats.TotalConns), 14)
			PrintKeyValue("Idle conns", fmt.Sprintf("%d", status.Stats.IdleConns), 14)
			PrintKeyValue("Acquire count", fmt.Sprintf("%d", status.Stats.AcquireCount), 14)
		}
	}

	if a.redis.Enabled() {
		if err := a.redis.Ping(ctx); err != nil {
			PrintError(fmt.Sprintf("Redis: %v", err))
			failed++
		} else {
			PrintSuccess("Redis reachable")
		}
	}

	bench := a.cfg.Provider.BenchmarkTicker
	start := time.Now()
	data, err := a.source.Fetch(ctx, bench, a.cfg.Provider.LookbackDays)
	switch {
	case err != nil:
		PrintError(fmt.Sprintf("Provider: %v", err))
		failed++
	case !data.Found:
		PrintWarning(fmt.Sprintf("Provider does not know benchmark %s", bench))
		failed++
	default:
		PrintSuccess(fmt.Sprintf("Provider returned %d days of %s in %v", len(data.Series), bench, time.Since(start).Round(time.Millisecond)))
	}
	PrintKeyValue("Breaker", a.source.BreakerState(), 14)

	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	PrintSuccess("All checks passed")
	return nil
}

// redactURL hides the password in a connection string
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
