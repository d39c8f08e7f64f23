package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/pkg/httputil"
	"github.com/wonny/momentum/pkg/logger"
)

// Snapshot table labels
const (
	labelForwardPE = "Forward P/E"
	labelPEG       = "PEG"
)

// FundamentalsScraper reads valuation ratios from a quote page snapshot table
// ⭐ SSOT: 밸류에이션 지표 스크래핑은 여기서만
type FundamentalsScraper struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewFundamentalsScraper creates a scraper for baseURL (e.g. https://finviz.com)
func NewFundamentalsScraper(httpClient *httputil.Client, baseURL string, log *logger.Logger) *FundamentalsScraper {
	return &FundamentalsScraper{
		httpClient: httpClient,
		logger:     log.Component("provider.fundamentals"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Fetch returns forward P/E and PEG; an unknown symbol yields empty fundamentals
func (s *FundamentalsScraper) Fetch(ctx context.Context, ticker string) (contracts.Fundamentals, error) {
	u := fmt.Sprintf("%s/quote.ashx?t=%s", s.baseURL, url.QueryEscape(ticker))

	body, err := s.httpClient.GetBytes(ctx, u)
	var se *httputil.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return contracts.Fundamentals{}, nil
	}
	if err != nil {
		return contracts.Fundamentals{}, fmt.Errorf("fundamentals fetch: %w", err)
	}

	return parseSnapshot(body)
}

// parseSnapshot walks label/value cell pairs of the snapshot table
func parseSnapshot(html []byte) (contracts.Fundamentals, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return contracts.Fundamentals{}, fmt.Errorf("parse HTML: %w", err)
	}

	var f contracts.Fundamentals
	doc.Find("table.snapshot-table2 tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		for i := 0; i+1 < cells.Length(); i += 2 {
			label := strings.TrimSpace(cells.Eq(i).Text())
			value := strings.TrimSpace(cells.Eq(i + 1).Text())

			switch label {
			case labelForwardPE:
				f.ForwardPE = parseRatio(value)
			case labelPEG:
				f.PEG = parseRatio(value)
			}
		}
	})

	return f, nil
}

// parseRatio converts "23.45" or "1,234.5" to a float; "-" or junk is missing
func parseRatio(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
