package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/momentum/internal/contracts"
)

func series(n int, start, step float64) contracts.Series {
	s := make(contracts.Series, n)
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range s {
		s[i] = contracts.PricePoint{Date: day.AddDate(0, 0, i), Close: start + step*float64(i), Volume: 1e6}
	}
	return s
}

// fakeSource counts fetches per ticker
type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	data  map[string]*contracts.MarketData
	errs  map[string]error
	delay time.Duration
	block map[string]bool // wait for ctx
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: make(map[string]int),
		data:  make(map[string]*contracts.MarketData),
		errs:  make(map[string]error),
		block: make(map[string]bool),
	}
}

func (f *fakeSource) add(ticker string, s contracts.Series) {
	f.data[ticker] = &contracts.MarketData{Ticker: ticker, Series: s, Found: true}
}

func (f *fakeSource) count(ticker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ticker]
}

func (f *fakeSource) Fetch(ctx context.Context, ticker string, _ int) (*contracts.MarketData, error) {
	f.mu.Lock()
	f.calls[ticker]++
	err := f.errs[ticker]
	data := f.data[ticker]
	block := f.block[ticker]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		return &contracts.MarketData{Ticker: ticker, Found: false}, nil
	}
	return data, nil
}

// fakeStore is an in-memory ScoreStore with query counters
type fakeStore struct {
	mu           sync.Mutex
	records      map[string]contracts.ScoreRecord
	prices       map[string]contracts.PriceRecord
	written      []contracts.ScoreRecord
	failReads    bool
	failWrites   bool
	scoreQueries atomic.Int32
	priceQueries atomic.Int32

	started chan struct{} // closed on first upsert when non-nil
	release chan struct{} // upserts wait on it when non-nil
	once    sync.Once
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]contracts.ScoreRecord),
		prices:  make(map[string]contracts.PriceRecord),
	}
}

var errStoreDown = errors.New("store down")

func (s *fakeStore) LatestScores(_ context.Context, tickers []string) (map[string]contracts.ScoreRecord, error) {
	s.scoreQueries.Add(1)
	if s.failReads {
		return nil, contracts.StoreError("latest scores", errStoreDown)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]contracts.ScoreRecord)
	for _, t := range tickers {
		if r, ok := s.records[t]; ok {
			out[t] = r
		}
	}
	return out, nil
}

func (s *fakeStore) LatestPrices(_ context.Context, tickers []string) (map[string]contracts.PriceRecord, error) {
	s.priceQueries.Add(1)
	if s.failReads {
		return nil, contracts.StoreError("latest prices", errStoreDown)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]contracts.PriceRecord)
	for _, t := range tickers {
		if p, ok := s.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertScore(ctx context.Context, rec contracts.ScoreRecord) error {
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.failWrites {
		return contracts.StoreError("upsert score", errStoreDown)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, rec)
	s.records[rec.Ticker] = rec
	return nil
}

func (s *fakeStore) UpsertPrice(_ context.Context, ticker string, asOf time.Time, closePrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[ticker] = contracts.PriceRecord{Ticker: ticker, AsOfDate: asOf, Close: closePrice}
	return nil
}

func (s *fakeStore) writtenTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.written))
	for i, r := range s.written {
		out[i] = r.Ticker
	}
	return out
}
