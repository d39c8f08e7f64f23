package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/pkg/httputil"
	"github.com/wonny/momentum/pkg/logger"
)

// ChartClient reads daily bars from a Yahoo-compatible chart endpoint
// ⭐ SSOT: 일봉 시계열 조회는 여기서만
type ChartClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewChartClient creates a chart client for baseURL (e.g. https://query1.finance.yahoo.com)
func NewChartClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *ChartClient {
	return &ChartClient{
		httpClient: httpClient,
		logger:     log.Component("provider.chart"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// chartRange picks the smallest range string covering lookback trading days
func chartRange(lookbackDays int) string {
	switch {
	case lookbackDays <= 21:
		return "1mo"
	case lookbackDays <= 63:
		return "3mo"
	case lookbackDays <= 126:
		return "6mo"
	case lookbackDays <= 250:
		return "1y"
	case lookbackDays <= 500:
		return "2y"
	default:
		return "5y"
	}
}

// FetchSeries returns up to lookbackDays chronological bars.
// found is false when the symbol is unknown to the provider.
func (c *ChartClient) FetchSeries(ctx context.Context, ticker string, lookbackDays int) (contracts.Series, bool, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		c.baseURL, url.PathEscape(ticker), chartRange(lookbackDays))

	body, err := c.httpClient.GetBytes(ctx, u)
	var se *httputil.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("chart fetch: %w", err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, fmt.Errorf("chart decode: %w", err)
	}
	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("chart api error: %s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, false, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	series := make(contracts.Series, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil || *quote.Close[i] <= 0 {
			continue // 휴장일 / null bar
		}
		p := contracts.PricePoint{
			Date:  contracts.AsOfDate(time.Unix(ts, 0)),
			Close: *quote.Close[i],
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			p.Volume = *quote.Volume[i]
		}
		series = append(series, p)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	if lookbackDays > 0 && len(series) > lookbackDays {
		series = series[len(series)-lookbackDays:]
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"bars":   len(series),
	}).Debug("Fetched daily bars")

	return series, len(series) > 0, nil
}
