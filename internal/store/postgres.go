package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/momentum/internal/contracts"
	"github.com/wonny/momentum/pkg/database"
)

// DBTX is the pgx surface the store needs; *pgxpool.Pool and pgxmock satisfy it
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore implements contracts.ScoreStore on PostgreSQL
// ⭐ SSOT: 점수/가격 영속화는 여기서만
type PostgresStore struct {
	db DBTX
}

var _ contracts.ScoreStore = (*PostgresStore)(nil)

// NewPostgresStore creates a store on top of a pool
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

const latestScoresSQL = `
	SELECT DISTINCT ON (sec.ticker)
		sec.ticker, s.as_of_date,
		s.composite_score, s.price_momentum, s.technical_momentum,
		s.fundamental_momentum, s.relative_momentum,
		COALESCE(s.rating, ''), COALESCE(s.price, 0)
	FROM momentum.scores s
	JOIN momentum.securities sec ON sec.id = s.security_id
	WHERE sec.ticker = ANY($1)
	ORDER BY sec.ticker, s.as_of_date DESC
`

const latestPricesSQL = `
	SELECT DISTINCT ON (sec.ticker)
		sec.ticker, p.as_of_date, p.close_price
	FROM momentum.prices p
	JOIN momentum.securities sec ON sec.id = p.security_id
	WHERE sec.ticker = ANY($1)
	ORDER BY sec.ticker, p.as_of_date DESC
`

const upsertSecuritySQL = `
	INSERT INTO momentum.securities (ticker)
	VALUES ($1)
	ON CONFLICT (ticker) DO UPDATE SET ticker = EXCLUDED.ticker
	RETURNING id
`

const upsertScoreSQL = `
	INSERT INTO momentum.scores (
		security_id, as_of_date, composite_score,
		price_momentum, technical_momentum, fundamental_momentum, relative_momentum,
		rating, price, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NOW())
	ON CONFLICT (security_id, as_of_date) DO UPDATE SET
		composite_score = EXCLUDED.composite_score,
		price_momentum = EXCLUDED.price_momentum,
		technical_momentum = EXCLUDED.technical_momentum,
		fundamental_momentum = EXCLUDED.fundamental_momentum,
		relative_momentum = EXCLUDED.relative_momentum,
		rating = EXCLUDED.rating,
		price = EXCLUDED.price,
		updated_at = NOW()
`

const upsertPriceSQL = `
	INSERT INTO momentum.prices (security_id, as_of_date, close_price, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (security_id, as_of_date) DO UPDATE SET
		close_price = EXCLUDED.close_price,
		updated_at = NOW()
`

// LatestScores returns the most recent score row per ticker in one query
func (s *PostgresStore) LatestScores(ctx context.Context, tickers []string) (map[string]contracts.ScoreRecord, error) {
	out := make(map[string]contracts.ScoreRecord, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx, latestScoresSQL, tickers)
	if err != nil {
		return nil, contracts.StoreError("query latest scores", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r contracts.ScoreRecord
		if err := rows.Scan(
			&r.Ticker, &r.AsOfDate,
			&r.CompositeScore, &r.PriceMomentum, &r.TechnicalMomentum,
			&r.FundamentalMomentum, &r.RelativeMomentum,
			&r.Rating, &r.Price,
		); err != nil {
			return nil, contracts.StoreError("scan score row", err)
		}
		out[r.Ticker] = r
	}
	if err := rows.Err(); err != nil {
		return nil, contracts.StoreError("iterate score rows", err)
	}

	return out, nil
}

// LatestPrices returns the most recent close per ticker in one query
func (s *PostgresStore) LatestPrices(ctx context.Context, tickers []string) (map[string]contracts.PriceRecord, error) {
	out := make(map[string]contracts.PriceRecord, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx, latestPricesSQL, tickers)
	if err != nil {
		return nil, contracts.StoreError("query latest prices", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p contracts.PriceRecord
		if err := rows.Scan(&p.Ticker, &p.AsOfDate, &p.Close); err != nil {
			return nil, contracts.StoreError("scan price row", err)
		}
		out[p.Ticker] = p
	}
	if err := rows.Err(); err != nil {
		return nil, contracts.StoreError("iterate price rows", err)
	}

	return out, nil
}

// UpsertScore writes one score row in its own transaction
func (s *PostgresStore) UpsertScore(ctx context.Context, rec contracts.ScoreRecord) error {
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		id, err := securityID(ctx, tx, rec.Ticker)
		if err != nil {
			return err
		}
		return upsertScore(ctx, tx, id, rec)
	})
	if err != nil {
		return contracts.StoreError("upsert score "+rec.Ticker, err)
	}
	return nil
}

// UpsertPrice writes one price row in its own transaction
func (s *PostgresStore) UpsertPrice(ctx context.Context, ticker string, asOf time.Time, closePrice float64) error {
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		id, err := securityID(ctx, tx, ticker)
		if err != nil {
			return err
		}
		return upsertPrice(ctx, tx, id, asOf, closePrice)
	})
	if err != nil {
		return contracts.StoreError("upsert price "+ticker, err)
	}
	return nil
}

// WriteScore persists a score and its price in a single transaction
func (s *PostgresStore) WriteScore(ctx context.Context, rec contracts.ScoreRecord) error {
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		id, err := securityID(ctx, tx, rec.Ticker)
		if err != nil {
			return err
		}
		if err := upsertScore(ctx, tx, id, rec); err != nil {
			return err
		}
		if rec.Price <= 0 {
			return nil
		}
		return upsertPrice(ctx, tx, id, rec.AsOfDate, rec.Price)
	})
	if err != nil {
		return contracts.StoreError("write score "+rec.Ticker, err)
	}
	return nil
}

// securityID looks up or creates the security row inside tx
func securityID(ctx context.Context, tx pgx.Tx, ticker string) (int64, error) {
	var id int64
	if err := tx.QueryRow(ctx, upsertSecuritySQL, ticker).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert security %s: %w", ticker, err)
	}
	return id, nil
}

func upsertScore(ctx context.Context, tx pgx.Tx, id int64, rec contracts.ScoreRecord) error {
	_, err := tx.Exec(ctx, upsertScoreSQL,
		id, contracts.AsOfDate(rec.AsOfDate), rec.CompositeScore,
		rec.PriceMomentum, rec.TechnicalMomentum, rec.FundamentalMomentum, rec.RelativeMomentum,
		rec.Rating, rec.Price,
	)
	if err != nil {
		return fmt.Errorf("upsert score row: %w", err)
	}
	return nil
}

func upsertPrice(ctx context.Context, tx pgx.Tx, id int64, asOf time.Time, closePrice float64) error {
	if _, err := tx.Exec(ctx, upsertPriceSQL, id, contracts.AsOfDate(asOf), closePrice); err != nil {
		return fmt.Errorf("upsert price row: %w", err)
	}
	return nil
}
