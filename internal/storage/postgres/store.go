package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolScope/internal/model"
	"poolScope/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store provides Postgres persistence for the registry and snapshots.
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

func (s *Store) FindToken(ctx context.Context, chainID uint64, address string) (model.Token, bool, error) {
	token := model.Token{ChainID: chainID}
	var decimals int16
	row := s.pool.QueryRow(ctx, `
		SELECT address, symbol, name, decimals FROM tokens
		WHERE chain_id = $1 AND lower(address) = lower($2)
	`, int64(chainID), address)
	if err := row.Scan(&token.Address, &token.Symbol, &token.Name, &decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Token{}, false, nil
		}
		return model.Token{}, false, err
	}
	token.Decimals = uint8(decimals)
	return token, true, nil
}

// SaveToken inserts a token. Existing rows are left untouched.
func (s *Store) SaveToken(ctx context.Context, token model.Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (chain_id, address, symbol, name, decimals, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (chain_id, address) DO NOTHING
	`,
		int64(token.ChainID),
		token.Address,
		token.Symbol,
		token.Name,
		int16(token.Decimals),
	)
	return err
}

func (s *Store) FindPool(ctx context.Context, chainID uint64, address string) (model.Pool, bool, error) {
	pool := model.Pool{ChainID: chainID}
	var kind string
	row := s.pool.QueryRow(ctx, `
		SELECT pool_address, symbol, kind, tokens FROM pools
		WHERE chain_id = $1 AND lower(pool_address) = lower($2)
	`, int64(chainID), address)
	if err := row.Scan(&pool.Address, &pool.Symbol, &kind, &pool.Tokens); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, err
	}
	pool.Kind = model.PoolKind(kind)
	return pool, true, nil
}

// SavePool inserts a pool with its ordered tokens. Existing rows are left
// untouched.
func (s *Store) SavePool(ctx context.Context, pool model.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (chain_id, pool_address, symbol, kind, tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (chain_id, pool_address) DO NOTHING
	`,
		int64(pool.ChainID),
		pool.Address,
		pool.Symbol,
		string(pool.Kind),
		pool.Tokens,
	)
	return err
}

func (s *Store) PoolCount(ctx context.Context, chainID uint64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM pools WHERE chain_id = $1`, int64(chainID)).Scan(&count)
	return count, err
}

// LatestSnapshot returns the snapshot with the greatest bucket for a chain
// and resolution.
func (s *Store) LatestSnapshot(ctx context.Context, chainID uint64, resolution string) (model.Snapshot, bool, error) {
	var (
		snap          model.Snapshot
		rowChainID    int64
		bucket, block int64
		sqrtPrice     *string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, chain_id, pool_address, pool_symbol, res, bucket_ts, block,
			total_supply, prices, sqrt_price_x96::text, tick, reserves, tvl_usd, lp_price, created_at
		FROM pool_snapshots
		WHERE chain_id = $1 AND res = $2
		ORDER BY bucket_ts DESC
		LIMIT 1
	`, int64(chainID), resolution)
	err := row.Scan(
		&snap.ID,
		&rowChainID,
		&snap.PoolAddress,
		&snap.PoolSymbol,
		&snap.Resolution,
		&bucket,
		&block,
		&snap.TotalSupply,
		&snap.Prices,
		&sqrtPrice,
		&snap.Tick,
		&snap.Reserves,
		&snap.TVL,
		&snap.LPPrice,
		&snap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, err
	}
	snap.ChainID = uint64(rowChainID)
	snap.Timestamp = uint64(bucket)
	snap.Block = uint64(block)
	if sqrtPrice != nil {
		snap.SqrtPriceX96 = *sqrtPrice
	}
	return snap, true, nil
}

// InsertSnapshots writes the batch in one transaction. A snapshot whose
// (pool, resolution, bucket) already exists is skipped.
func (s *Store) InsertSnapshots(ctx context.Context, snapshots []model.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		var sqrtPrice *string
		if snap.SqrtPriceX96 != "" {
			sqrtPrice = &snap.SqrtPriceX96
		}
		batch.Queue(`
			INSERT INTO pool_snapshots (
				id, chain_id, pool_address, pool_symbol, res, bucket_ts, block,
				total_supply, prices, sqrt_price_x96, tick, reserves, tvl_usd, lp_price, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::numeric,$11,$12,$13,$14,$15)
			ON CONFLICT (chain_id, pool_address, res, bucket_ts) DO NOTHING
		`,
			snap.ID,
			int64(snap.ChainID),
			snap.PoolAddress,
			snap.PoolSymbol,
			snap.Resolution,
			int64(snap.Timestamp),
			int64(snap.Block),
			snap.TotalSupply,
			snap.Prices,
			sqrtPrice,
			snap.Tick,
			snap.Reserves,
			snap.TVL,
			snap.LPPrice,
			snap.CreatedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range snapshots {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LoadState returns the last processed value for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var value int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(value), true, nil
}

// SaveState upserts the last processed value for a name.
func (s *Store) SaveState(ctx context.Context, name string, value uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(value))
	return err
}
