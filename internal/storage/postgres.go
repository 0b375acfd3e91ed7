package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/types"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

// StoreOpportunity stores a detected (but not necessarily executed)
// opportunity in the near_misses table as a lightweight sighting record;
// executed opportunities are recorded in full via StoreTrade.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *types.Opportunity) error {
	query := `
		INSERT INTO near_misses (name, strategy, reason, timestamp)
		VALUES ($1, $2, $3, $4)
	`
	_, err := p.db.ExecContext(ctx, query, opp.Name, string(opp.Strategy), "detected", opp.DetectedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert opportunity sighting: %w", err)
	}
	p.logger.Debug("opportunity-stored", zap.String("name", opp.Name), zap.String("strategy", string(opp.Strategy)))
	return nil
}

// StoreTrade persists an executed (or dry-run) trade.
func (p *PostgresStorage) StoreTrade(ctx context.Context, trade *Trade) error {
	query := `
		INSERT INTO trades (
			id, name, type, strategy, side_a, side_b, price_a, price_b,
			contracts, total_cost, gross_spread, fees, expected_net, actual_net,
			entry_time, exit_time, hold_ms, payout, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)
	`
	_, err := p.db.ExecContext(ctx, query,
		trade.ID, trade.Name, trade.Type, string(trade.Strategy),
		string(trade.SideA), string(trade.SideB), trade.PriceACents, trade.PriceBCents,
		trade.Contracts, trade.TotalCostCents, trade.GrossSpread, trade.FeesCents,
		trade.ExpectedNet, trade.ActualNet, trade.EntryTime, trade.ExitTime,
		trade.HoldMs, trade.Payout, trade.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	p.logger.Info("trade-stored", zap.String("id", trade.ID), zap.String("name", trade.Name))
	return nil
}

// StoreNearMiss persists a near-miss (an opportunity that didn't clear
// execution thresholds).
func (p *PostgresStorage) StoreNearMiss(ctx context.Context, nm *NearMiss) error {
	query := `
		INSERT INTO near_misses (name, strategy, reason, timestamp)
		VALUES ($1, $2, $3, $4)
	`
	_, err := p.db.ExecContext(ctx, query, nm.Name, string(nm.Strategy), nm.Reason, nm.Timestamp)
	if err != nil {
		return fmt.Errorf("insert near miss: %w", err)
	}
	return nil
}

// SetPortfolioState upserts a key/JSON-value pair in the portfolio_state
// key-value table.
func (p *PostgresStorage) SetPortfolioState(ctx context.Context, key string, jsonValue string) error {
	query := `
		INSERT INTO portfolio_state (key, json_value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET json_value = EXCLUDED.json_value
	`
	_, err := p.db.ExecContext(ctx, query, key, jsonValue)
	if err != nil {
		return fmt.Errorf("upsert portfolio state: %w", err)
	}
	return nil
}

// GetPortfolioState reads back a previously-set key; returns "" if absent.
func (p *PostgresStorage) GetPortfolioState(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `SELECT json_value FROM portfolio_state WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select portfolio state: %w", err)
	}
	return value, nil
}

// UpsertDailyStats rolls executed trades up into the daily_stats table.
func (p *PostgresStorage) UpsertDailyStats(ctx context.Context, stats *DailyStats) error {
	query := `
		INSERT INTO daily_stats (date, trades_count, wins_count, losses_count, total_pnl_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			trades_count = EXCLUDED.trades_count,
			wins_count = EXCLUDED.wins_count,
			losses_count = EXCLUDED.losses_count,
			total_pnl_cents = EXCLUDED.total_pnl_cents
	`
	_, err := p.db.ExecContext(ctx, query, stats.Date, stats.TradesCount, stats.WinsCount, stats.LossesCount, stats.TotalPnLCents)
	if err != nil {
		return fmt.Errorf("upsert daily stats: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
