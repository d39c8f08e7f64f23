package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/pkg/config"
	"github.com/wonny/momentum/pkg/httputil"
	"github.com/wonny/momentum/pkg/logger"
)

const snapshotHTML = `<html><body>
<table class="snapshot-table2">
<tr><td>Index</td><td>S&amp;P 500</td><td>P/E</td><td>31.20</td></tr>
<tr><td>Forward P/E</td><td>28.50</td><td>PEG</td><td>-</td></tr>
</table></body></html>`

// chartJSON renders n bars starting 2026-01-01, one null close in the middle
func chartJSON(n int) string {
	base := time.Date(2026, 1, 1, 14, 30, 0, 0, time.UTC)
	ts := make([]string, n)
	closes := make([]string, n)
	vols := make([]string, n)
	for i := 0; i < n; i++ {
		ts[i] = fmt.Sprint(base.AddDate(0, 0, i).Unix())
		closes[i] = fmt.Sprintf("%.2f", 100+float64(i))
		vols[i] = "1000"
	}
	closes[n/2] = "null"
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"close":[%s],"volume":[%s]}]}}],"error":null}}`,
		strings.Join(ts, ","), strings.Join(closes, ","), strings.Join(vols, ","))
}

type fakeProvider struct {
	chartCalls atomic.Int32
	chartFail  atomic.Bool
	chartSlow  atomic.Bool
	fundFail   atomic.Bool
}

func (f *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		f.chartCalls.Add(1)
		sym := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		switch {
		case f.chartFail.Load():
			w.WriteHeader(http.StatusBadGateway)
		case f.chartSlow.Load():
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			w.WriteHeader(http.StatusGatewayTimeout)
		case sym == "NOPE":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		case sym == "GHOST":
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"delisted"}}}`))
		default:
			if r.URL.Query().Get("interval") != "1d" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write([]byte(chartJSON(10)))
		}
	})
	mux.HandleFunc("/quote.ashx", func(w http.ResponseWriter, r *http.Request) {
		if f.fundFail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(snapshotHTML))
	})
	return mux
}

func newTestSource(t *testing.T, fp *fakeProvider, cfg config.ProviderConfig) *Source {
	t.Helper()
	srv := httptest.NewServer(fp.handler())
	t.Cleanup(srv.Close)

	log := logger.NewNop()
	hc := httputil.New(log).DisableRetry()
	return NewSource(cfg,
		NewChartClient(hc, srv.URL, log),
		NewFundamentalsScraper(hc, srv.URL, log),
		log)
}

func TestChartRange(t *testing.T) {
	assert.Equal(t, "1mo", chartRange(20))
	assert.Equal(t, "1y", chartRange(250))
	assert.Equal(t, "2y", chartRange(400))
	assert.Equal(t, "5y", chartRange(1000))
}

func TestSourceFetch(t *testing.T) {
	fp := &fakeProvider{}
	src := newTestSource(t, fp, config.ProviderConfig{})

	data, err := src.Fetch(context.Background(), "AAPL", 400)
	require.NoError(t, err)
	require.True(t, data.Found)

	// null bar skipped, chronological order
	assert.Len(t, data.Series, 9)
	for i := 1; i < len(data.Series); i++ {
		assert.True(t, data.Series[i-1].Date.Before(data.Series[i].Date))
	}
	assert.Equal(t, 109.0, data.Series.Last())
	assert.Equal(t, 1000.0, data.Series[0].Volume)

	pe, ok := data.Fundamentals.ForwardPEValue()
	assert.True(t, ok)
	assert.Equal(t, 28.5, pe)
	_, ok = data.Fundamentals.PEGValue()
	assert.False(t, ok, "'-' is missing")
}

func TestSourceFetchTrimsLookback(t *testing.T) {
	src := newTestSource(t, &fakeProvider{}, config.ProviderConfig{})

	data, err := src.Fetch(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	assert.Len(t, data.Series, 5)
	assert.Equal(t, 109.0, data.Series.Last())
}

func TestSourceFetchUnknownTicker(t *testing.T) {
	src := newTestSource(t, &fakeProvider{}, config.ProviderConfig{})

	for _, sym := range []string{"NOPE", "GHOST"} {
		data, err := src.Fetch(context.Background(), sym, 400)
		require.NoError(t, err, sym)
		assert.False(t, data.Found, sym)
		assert.Empty(t, data.Series, sym)
	}
}

func TestSourceFundamentalsBestEffort(t *testing.T) {
	fp := &fakeProvider{}
	fp.fundFail.Store(true)
	src := newTestSource(t, fp, config.ProviderConfig{})

	data, err := src.Fetch(context.Background(), "MSFT", 400)
	require.NoError(t, err)
	assert.True(t, data.Found)
	assert.Nil(t, data.Fundamentals.ForwardPE)
}

func TestSourceProviderError(t *testing.T) {
	fp := &fakeProvider{}
	fp.chartFail.Store(true)
	src := newTestSource(t, fp, config.ProviderConfig{BreakerFailures: 100})

	_, err := src.Fetch(context.Background(), "AAPL", 400)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrProviderFailure))

	var pe *contracts.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "AAPL", pe.Ticker)
}

func TestSourceBreakerOpens(t *testing.T) {
	fp := &fakeProvider{}
	fp.chartFail.Store(true)
	src := newTestSource(t, fp, config.ProviderConfig{BreakerFailures: 2, BreakerCooldown: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := src.Fetch(context.Background(), "AAPL", 400)
		require.Error(t, err)
	}
	assert.Equal(t, "open", src.BreakerState())

	// open breaker short-circuits without hitting the provider
	calls := fp.chartCalls.Load()
	_, err := src.Fetch(context.Background(), "AAPL", 400)
	assert.True(t, errors.Is(err, contracts.ErrProviderFailure))
	assert.Equal(t, calls, fp.chartCalls.Load())
}

func TestSourceCallerDeadlineKeepsBreakerClosed(t *testing.T) {
	fp := &fakeProvider{}
	fp.chartSlow.Store(true)
	src := newTestSource(t, fp, config.ProviderConfig{BreakerFailures: 2, BreakerCooldown: time.Minute})

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := src.Fetch(ctx, "AAPL", 400)
		cancel()

		require.Error(t, err)
		assert.True(t, errors.Is(err, contracts.ErrProviderFailure))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	}
	assert.Equal(t, "closed", src.BreakerState())

	// sibling tickers still reach the provider
	fp.chartSlow.Store(false)
	data, err := src.Fetch(context.Background(), "MSFT", 400)
	require.NoError(t, err)
	assert.True(t, data.Found)
}

func TestSourceCallerCancelKeepsBreakerClosed(t *testing.T) {
	fp := &fakeProvider{}
	src := newTestSource(t, fp, config.ProviderConfig{BreakerFailures: 1, BreakerCooldown: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Fetch(ctx, "AAPL", 400)
	require.Error(t, err)
	assert.Equal(t, "closed", src.BreakerState())
}

func TestParseSnapshot(t *testing.T) {
	f, err := parseSnapshot([]byte(`<table class="snapshot-table2"><tr><td>PEG</td><td>1,234.5</td><td>Forward P/E</td><td>n/a</td></tr></table>`))
	require.NoError(t, err)

	require.NotNil(t, f.PEG)
	assert.Equal(t, 1234.5, *f.PEG)
	assert.Nil(t, f.ForwardPE)
}
