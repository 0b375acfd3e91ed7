package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/types"
)

func testOpportunity() *types.Opportunity {
	return &types.Opportunity{
		Name:             "a1|b1",
		Strategy:         types.StrategyS1,
		SideA:            types.SideYes,
		SideB:            types.SideNo,
		PriceACents:      40,
		PriceBCents:      40,
		GrossSpreadCents: 20,
		NetProfitCents:   20,
		TotalCostCents:   80,
		DetectedAt:       time.Now(),
	}
}

func TestConsoleStorageStoreOpportunity(t *testing.T) {
	logger := zap.NewNop()
	s := NewConsoleStorage(logger)

	err := s.StoreOpportunity(context.Background(), testOpportunity())
	assert.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestConsoleStorageTradeAndStats(t *testing.T) {
	logger := zap.NewNop()
	s := NewConsoleStorage(logger)

	trade := &Trade{ID: "t1", Name: "a1|b1", Strategy: types.StrategyS1, ActualNet: 0.20}
	assert.NoError(t, s.StoreTrade(context.Background(), trade))
	assert.NoError(t, s.StoreNearMiss(context.Background(), &NearMiss{Name: "a1|b1", Reason: "below_min_profit"}))
	assert.NoError(t, s.UpsertDailyStats(context.Background(), &DailyStats{Date: "2026-07-29", TradesCount: 1}))

	got, err := s.GetPortfolioState(context.Background(), "open_positions")
	assert.NoError(t, err)
	assert.Equal(t, "", got)
}

func newMockPostgres(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return &PostgresStorage{db: db, logger: zap.NewNop()}, mock
}

func TestPostgresStorageStoreOpportunity(t *testing.T) {
	p, mock := newMockPostgres(t)
	defer p.Close()

	mock.ExpectExec("INSERT INTO near_misses").
		WithArgs("a1|b1", "S1", "detected", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := p.StoreOpportunity(context.Background(), testOpportunity())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorageStoreTrade(t *testing.T) {
	p, mock := newMockPostgres(t)
	defer p.Close()

	mock.ExpectExec("INSERT INTO trades").
		WillReturnResult(sqlmock.NewResult(1, 1))

	trade := &Trade{ID: "t1", Name: "a1|b1", Strategy: types.StrategyS1, SideA: types.SideYes, SideB: types.SideNo}
	err := p.StoreTrade(context.Background(), trade)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoragePortfolioStateRoundTrip(t *testing.T) {
	p, mock := newMockPostgres(t)
	defer p.Close()

	mock.ExpectExec("INSERT INTO portfolio_state").
		WithArgs("open_positions", `{"count":1}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := p.SetPortfolioState(context.Background(), "open_positions", `{"count":1}`)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"json_value"}).AddRow(`{"count":1}`)
	mock.ExpectQuery("SELECT json_value FROM portfolio_state").
		WithArgs("open_positions").
		WillReturnRows(rows)

	got, err := p.GetPortfolioState(context.Background(), "open_positions")
	require.NoError(t, err)
	assert.Equal(t, `{"count":1}`, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorageUpsertDailyStats(t *testing.T) {
	p, mock := newMockPostgres(t)
	defer p.Close()

	mock.ExpectExec("INSERT INTO daily_stats").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := p.UpsertDailyStats(context.Background(), &DailyStats{Date: "2026-07-29", TradesCount: 3, WinsCount: 2, LossesCount: 1, TotalPnLCents: 150})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
