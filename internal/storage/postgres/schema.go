package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		chain_id   BIGINT      NOT NULL,
		address    TEXT        NOT NULL,
		symbol     TEXT        NOT NULL DEFAULT '',
		name       TEXT        NOT NULL DEFAULT '',
		decimals   SMALLINT    NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (chain_id, address)
	)`,
	`CREATE TABLE IF NOT EXISTS pools (
		chain_id     BIGINT      NOT NULL,
		pool_address TEXT        NOT NULL,
		symbol       TEXT        NOT NULL DEFAULT '',
		kind         TEXT        NOT NULL,
		tokens       JSONB       NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (chain_id, pool_address)
	)`,
	`CREATE TABLE IF NOT EXISTS pool_snapshots (
		id             UUID             PRIMARY KEY,
		chain_id       BIGINT           NOT NULL,
		pool_address   TEXT             NOT NULL,
		pool_symbol    TEXT             NOT NULL DEFAULT '',
		res            TEXT             NOT NULL,
		bucket_ts      BIGINT           NOT NULL,
		block          BIGINT           NOT NULL,
		total_supply   DOUBLE PRECISION NOT NULL,
		prices         DOUBLE PRECISION[] NOT NULL,
		sqrt_price_x96 NUMERIC,
		tick           INTEGER,
		reserves       DOUBLE PRECISION[],
		tvl_usd        DOUBLE PRECISION,
		lp_price       DOUBLE PRECISION,
		created_at     TIMESTAMPTZ      NOT NULL,
		UNIQUE (chain_id, pool_address, res, bucket_ts)
	)`,
	`CREATE INDEX IF NOT EXISTS pool_snapshots_chain_res_bucket_idx ON pool_snapshots (chain_id, res, bucket_ts DESC)`,
	`CREATE TABLE IF NOT EXISTS indexer_state (
		name           TEXT        PRIMARY KEY,
		last_processed BIGINT      NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the tables the store needs. It is safe to run
// repeatedly.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
