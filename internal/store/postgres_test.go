package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentum/internal/contracts"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresLatestScores(t *testing.T) {
	mock := newMock(t)
	s := NewPostgresStore(mock)

	tickers := []string{"AAPL", "MSFT", "NVDA"}
	rows := pgxmock.NewRows([]string{"ticker", "as_of_date", "composite", "price", "technical", "fundamental", "relative", "rating", "close"}).
		AddRow("AAPL", day, 72.5, 80.0, 60.0, 70.0, 75.0, "BUY", 187.0).
		AddRow("MSFT", day, 55.0, 50.0, 60.0, 50.0, 70.0, "", 410.0)
	mock.ExpectQuery("FROM momentum.scores").WithArgs(tickers).WillReturnRows(rows)

	got, err := s.LatestScores(context.Background(), tickers)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "BUY", got["AAPL"].Rating)
	assert.Equal(t, 72.5, got["AAPL"].CompositeScore)
	assert.Equal(t, "", got["MSFT"].Rating)
	assert.NotContains(t, got, "NVDA")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestScoresEmptyInput(t *testing.T) {
	mock := newMock(t)
	s := NewPostgresStore(mock)

	got, err := s.LatestScores(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestScoresUnavailable(t *testing.T) {
	mock := newMock(t)
	s := NewPostgresStore(mock)

	mock.ExpectQuery("FROM momentum.scores").WillReturnError(errors.New("connection refused"))

	_, err := s.LatestScores(context.Background(), []string{"AAPL"})
	assert.True(t, errors.Is(err, contracts.ErrStoreUnavailable))
}

func TestPostgresLatestPrices(t *testing.T) {
	mock := newMock(t)
	s := NewPostgresStore(mock)

	rows := pgxmock.NewRows([]string{"ticker", "as_of_date", "close_price"}).
		AddRow("AAPL", day, 187.25)
	mock.ExpectQuery("FROM momentum.prices").WithArgs([]string{"AAPL", "MSFT"}).WillReturnRows(rows)

	got, err := s.LatestPrices(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, 187.25, got["AAPL"].Close)
	assert.Equal(t, day, got["AAPL"].AsOfDate)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertScore(t *testing.T) {
	mock := newMock(t)
	s := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO momentum.securities").WithArgs("AAPL").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO momentum.scores").
		WithArgs(int64(7), day, 72.5, 80.0, 60.0, 70.0, 75.0, "BUY", 187.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.UpsertScore(context.Background(), contracts.ScoreRecord{
		Ticker: "AAPL", AsOfDate: day.Add(15 * time.Hour),
		CompositeScore: 72.5, PriceMomentum: 80, TechnicalMomentum: 60,
		FundamentalMomentum: 70, RelativeMomentum: 75, Rating: "BUY", Price: 187,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertPriceRollsBack(t *testing.T) {
	mock := newMock(t)
	s := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO momentum.securities").WithArgs("AAPL").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO momentum.prices").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := s.UpsertPrice(context.Background(), "AAPL", day, 187)
	assert.True(t, errors.Is(err, contracts.ErrStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriteScoreSingleTransaction(t *testing.T) {
	mock := newMock(t)
	s := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO momentum.securities").WithArgs("NVDA").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO momentum.scores").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO momentum.prices").
		WithArgs(int64(3), day, 900.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.WriteScore(context.Background(), contracts.ScoreRecord{
		Ticker: "NVDA", AsOfDate: day, CompositeScore: 88, Rating: "STRONG_BUY", Price: 900,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type recordingRunner struct {
	scripts []string
}

func (r *recordingRunner) ExecScript(_ context.Context, script string) error {
	r.scripts = append(r.scripts, script)
	return nil
}

func TestMigrate(t *testing.T) {
	runner := &recordingRunner{}

	applied, err := Migrate(context.Background(), runner)
	require.NoError(t, err)
	require.NotEmpty(t, applied)
	assert.Equal(t, "migrations/001_momentum.sql", applied[0])
	assert.True(t, strings.Contains(runner.scripts[0], "CREATE TABLE IF NOT EXISTS momentum.scores"))
}
