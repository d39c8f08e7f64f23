package store

import (
	"context"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/pkg/redis"
)

const dateLayout = "2006-01-02"

// RedisStore implements contracts.ScoreStore with one hash per ticker,
// field = as-of date, value = msgpack row.
type RedisStore struct {
	client *redis.Client
}

var _ contracts.ScoreStore = (*RedisStore)(nil)

// NewRedisStore creates a store on an enabled Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisScore struct {
	Composite   float64 `msgpack:"c"`
	Price       float64 `msgpack:"p"`
	Technical   float64 `msgpack:"t"`
	Fundamental float64 `msgpack:"f"`
	Relative    float64 `msgpack:"r"`
	Rating      string  `msgpack:"g,omitempty"`
	Close       float64 `msgpack:"x,omitempty"`
}

// LatestScores pipelines one HGETALL per ticker and keeps the newest date
func (s *RedisStore) LatestScores(ctx context.Context, tickers []string) (map[string]contracts.ScoreRecord, error) {
	out := make(map[string]contracts.ScoreRecord, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	hashes, err := s.hgetAll(ctx, tickers, redis.ScoreHashKey)
	if err != nil {
		return nil, contracts.StoreError("redis latest scores", err)
	}

	for i, fields := range hashes {
		date, raw, ok := newestField(fields)
		if !ok {
			continue
		}
		var v redisScore
		if err := msgpack.Unmarshal([]byte(raw), &v); err != nil {
			return nil, contracts.StoreError("decode score "+tickers[i], err)
		}
		out[tickers[i]] = contracts.ScoreRecord{
			Ticker:              tickers[i],
			AsOfDate:            date,
			CompositeScore:      v.Composite,
			PriceMomentum:       v.Price,
			TechnicalMomentum:   v.Technical,
			FundamentalMomentum: v.Fundamental,
			RelativeMomentum:    v.Relative,
			Rating:              v.Rating,
			Price:               v.Close,
		}
	}
	return out, nil
}

// LatestPrices pipelines one HGETALL per ticker and keeps the newest date
func (s *RedisStore) LatestPrices(ctx context.Context, tickers []string) (map[string]contracts.PriceRecord, error) {
	out := make(map[string]contracts.PriceRecord, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	hashes, err := s.hgetAll(ctx, tickers, redis.PriceHashKey)
	if err != nil {
		return nil, contracts.StoreError("redis latest prices", err)
	}

	for i, fields := range hashes {
		date, raw, ok := newestField(fields)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, contracts.StoreError("decode price "+tickers[i], err)
		}
		out[tickers[i]] = contracts.PriceRecord{Ticker: tickers[i], AsOfDate: date, Close: v}
	}
	return out, nil
}

// UpsertScore sets the (ticker, date) field; same date overwrites
func (s *RedisStore) UpsertScore(ctx context.Context, rec contracts.ScoreRecord) error {
	data, err := msgpack.Marshal(redisScore{
		Composite:   rec.CompositeScore,
		Price:       rec.PriceMomentum,
		Technical:   rec.TechnicalMomentum,
		Fundamental: rec.FundamentalMomentum,
		Relative:    rec.RelativeMomentum,
		Rating:      rec.Rating,
		Close:       rec.Price,
	})
	if err != nil {
		return contracts.StoreError("encode score "+rec.Ticker, err)
	}

	key := s.client.Key(redis.ScoreHashKey(rec.Ticker))
	field := contracts.AsOfDate(rec.AsOfDate).Format(dateLayout)
	if err := s.client.Redis().HSet(ctx, key, field, data).Err(); err != nil {
		return contracts.StoreError("redis upsert score "+rec.Ticker, err)
	}
	return nil
}

// UpsertPrice sets the (ticker, date) close
func (s *RedisStore) UpsertPrice(ctx context.Context, ticker string, asOf time.Time, closePrice float64) error {
	key := s.client.Key(redis.PriceHashKey(ticker))
	field := contracts.AsOfDate(asOf).Format(dateLayout)
	value := strconv.FormatFloat(closePrice, 'f', -1, 64)

	if err := s.client.Redis().HSet(ctx, key, field, value).Err(); err != nil {
		return contracts.StoreError("redis upsert price "+ticker, err)
	}
	return nil
}

func (s *RedisStore) hgetAll(ctx context.Context, tickers []string, keyFn func(string) string) ([]map[string]string, error) {
	cmds := make([]*goredis.MapStringStringCmd, len(tickers))
	_, err := s.client.Redis().Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, t := range tickers {
			cmds[i] = pipe.HGetAll(ctx, s.client.Key(keyFn(t)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]map[string]string, len(cmds))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

// newestField picks the latest parseable date field
func newestField(fields map[string]string) (time.Time, string, bool) {
	var (
		best  time.Time
		value string
		found bool
	)
	for k, v := range fields {
		d, err := time.Parse(dateLayout, k)
		if err != nil {
			continue
		}
		if !found || d.After(best) {
			best, value, found = d, v, true
		}
	}
	return best, value, found
}
