package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rangeTrader/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS trade_cycles (
	id            BIGSERIAL PRIMARY KEY,
	started_at    TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL,
	pool_address  TEXT NOT NULL,
	base_token    TEXT NOT NULL,
	quote_token   TEXT NOT NULL,
	price         NUMERIC,
	base_balance  NUMERIC,
	quote_balance NUMERIC,
	action        TEXT NOT NULL,
	amount        BIGINT NOT NULL DEFAULT 0,
	reason        TEXT,
	mode          TEXT NOT NULL,
	dry_run       BOOLEAN NOT NULL DEFAULT false,
	tx_hash       TEXT,
	block_number  BIGINT,
	error_kind    TEXT,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS trade_cycles_pool_started_idx ON trade_cycles (pool_address, started_at);
`

const insertCycle = `
	INSERT INTO trade_cycles (
		started_at, duration_ms, pool_address, base_token, quote_token,
		price, base_balance, quote_balance, action, amount, reason, mode,
		dry_run, tx_hash, block_number, error_kind, error
	) VALUES (
		($1::text)::timestamptz, $2, $3, $4, $5,
		NULLIF($6::text, '')::numeric, NULLIF($7::text, '')::numeric, NULLIF($8::text, '')::numeric,
		$9, $10, NULLIF($11::text, ''), $12,
		$13, NULLIF($14::text, ''), NULLIF($15::bigint, 0), NULLIF($16::text, ''), NULLIF($17::text, '')
	)
`

// Store provides Postgres persistence for the cycle journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the journal table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// PutCycle inserts a single cycle record.
func (s *Store) PutCycle(ctx context.Context, record model.CycleRecord) error {
	if _, err := s.pool.Exec(ctx, insertCycle, cycleArgs(record)...); err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

func cycleArgs(r model.CycleRecord) []any {
	return []any{
		r.StartedAt,
		r.DurationMs,
		r.Pool,
		r.BaseToken,
		r.QuoteToken,
		r.Price,
		r.BaseBalance,
		r.QuoteBalance,
		r.Action,
		r.Amount,
		r.Reason,
		r.Mode,
		r.DryRun,
		r.TxHash,
		int64(r.BlockNumber),
		r.ErrorKind,
		r.Error,
	}
}
