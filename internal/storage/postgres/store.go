package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolarb/internal/model"
)

// Schema creates the tables written by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS opportunities (
	id           UUID PRIMARY KEY,
	path_id      INTEGER NOT NULL,
	direction    TEXT NOT NULL,
	route        TEXT NOT NULL,
	base         TEXT NOT NULL,
	profit_pct   NUMERIC NOT NULL,
	trade_size   NUMERIC NOT NULL,
	detected_at  TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS scan_cycles (
	serial          BIGINT PRIMARY KEY,
	ts              TIMESTAMPTZ NOT NULL,
	prices          JSONB NOT NULL,
	spread_abs      NUMERIC NOT NULL,
	spread_pct      NUMERIC NOT NULL,
	net_profit_pct  NUMERIC NOT NULL,
	trade_possible  BOOLEAN NOT NULL,
	failure_reason  TEXT NOT NULL DEFAULT '',
	best_route      TEXT NOT NULL DEFAULT '',
	evaluated       INTEGER NOT NULL,
	skipped         INTEGER NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS scanner_state (
	name         TEXT PRIMARY KEY,
	last_serial  BIGINT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for opportunities and cycle records.
type Store struct {
	pool  *pgxpool.Pool
	state string
}

func NewStore(ctx context.Context, dsn, stateName string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if stateName == "" {
		stateName = "scanner"
	}
	return &Store{pool: pool, state: stateName}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Publish inserts a signal as an opportunity row.
func (s *Store) Publish(ctx context.Context, signal model.Signal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO opportunities (
			id, path_id, direction, route, base, profit_pct, trade_size, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, to_timestamp($8::double precision / 1000))
		ON CONFLICT (id) DO NOTHING
	`,
		signal.ID,
		signal.PathID,
		signal.Direction,
		signal.Route,
		signal.Base,
		signal.ProfitPct.String(),
		signal.TradeSize.String(),
		signal.TimestampMs,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

// LogCycle inserts the cycle record and advances the scanner state in one batch.
func (s *Store) LogCycle(ctx context.Context, record model.CycleRecord) error {
	prices, err := json.Marshal(record.Prices)
	if err != nil {
		return fmt.Errorf("marshal prices: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO scan_cycles (
			serial, ts, prices, spread_abs, spread_pct, net_profit_pct,
			trade_possible, failure_reason, best_route, evaluated, skipped
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (serial) DO NOTHING
	`,
		int64(record.Serial),
		record.Timestamp,
		prices,
		record.SpreadAbs.String(),
		record.SpreadPct.String(),
		record.NetProfitPct.String(),
		record.TradePossible,
		record.FailureReason,
		record.BestRoute,
		record.Evaluated,
		record.Skipped,
	)
	batch.Queue(`
		INSERT INTO scanner_state (name, last_serial, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_serial = GREATEST(scanner_state.last_serial, EXCLUDED.last_serial), updated_at = now()
	`, s.state, int64(record.Serial))

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert cycle %d: %w", record.Serial, err)
		}
	}
	return nil
}

// LoadSerial returns the last persisted cycle serial.
func (s *Store) LoadSerial(ctx context.Context) (uint64, bool, error) {
	var serial int64
	row := s.pool.QueryRow(ctx, `SELECT last_serial FROM scanner_state WHERE name=$1`, s.state)
	if err := row.Scan(&serial); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(serial), true, nil
}
