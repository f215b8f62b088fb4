package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammledger/internal/model"
	"ammledger/internal/storage"
)

// Store provides Postgres persistence for pools and liquidity balances.
// Amounts are stored as NUMERIC(78,0) decimal strings, wide enough for the
// full 256-bit domain.
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
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the backing tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS amm_pools (
			asset_low       TEXT NOT NULL,
			asset_high      TEXT NOT NULL,
			issuer          TEXT NOT NULL,
			reserve_low     NUMERIC(78,0) NOT NULL,
			reserve_high    NUMERIC(78,0) NOT NULL,
			total_liquidity NUMERIC(78,0) NOT NULL,
			fee_accum_low   NUMERIC(78,0) NOT NULL,
			fee_accum_high  NUMERIC(78,0) NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (asset_low, asset_high)
		);
		CREATE TABLE IF NOT EXISTS amm_liquidity (
			provider   TEXT NOT NULL,
			asset_low  TEXT NOT NULL,
			asset_high TEXT NOT NULL,
			balance    NUMERIC(78,0) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (provider, asset_low, asset_high)
		);
	`)
	return err
}

func (s *Store) GetPool(ctx context.Context, key model.PairKey) (model.Pool, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT issuer, reserve_low::text, reserve_high::text, total_liquidity::text, fee_accum_low::text, fee_accum_high::text
		FROM amm_pools WHERE asset_low=$1 AND asset_high=$2
	`, key.AssetLow.Hex(), key.AssetHigh.Hex())

	var issuer, reserveLow, reserveHigh, totalLiquidity, feeLow, feeHigh string
	if err := row.Scan(&issuer, &reserveLow, &reserveHigh, &totalLiquidity, &feeLow, &feeHigh); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, err
	}

	pool := model.Pool{
		AssetLow:  key.AssetLow,
		AssetHigh: key.AssetHigh,
		Issuer:    issuer,
	}
	for _, field := range []struct {
		dst *uint256.Int
		src string
	}{
		{&pool.ReserveLow, reserveLow},
		{&pool.ReserveHigh, reserveHigh},
		{&pool.TotalLiquidity, totalLiquidity},
		{&pool.FeeAccumLow, feeLow},
		{&pool.FeeAccumHigh, feeHigh},
	} {
		if err := field.dst.SetFromDecimal(field.src); err != nil {
			return model.Pool{}, false, fmt.Errorf("decode pool %s amount: %w", key, err)
		}
	}
	return pool, true, nil
}

func (s *Store) GetBalance(ctx context.Context, provider string, key model.PairKey) (uint256.Int, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT balance::text FROM amm_liquidity WHERE provider=$1 AND asset_low=$2 AND asset_high=$3
	`, provider, key.AssetLow.Hex(), key.AssetHigh.Hex())

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uint256.Int{}, nil
		}
		return uint256.Int{}, err
	}

	var balance uint256.Int
	if err := balance.SetFromDecimal(raw); err != nil {
		return uint256.Int{}, fmt.Errorf("decode balance for %s on %s: %w", provider, key, err)
	}
	return balance, nil
}

func (s *Store) ListPools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT asset_low, asset_high, issuer, reserve_low::text, reserve_high::text, total_liquidity::text, fee_accum_low::text, fee_accum_high::text
		FROM amm_pools ORDER BY asset_low, asset_high
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		var assetLow, assetHigh, issuer string
		var reserveLow, reserveHigh, totalLiquidity, feeLow, feeHigh string
		if err := rows.Scan(&assetLow, &assetHigh, &issuer, &reserveLow, &reserveHigh, &totalLiquidity, &feeLow, &feeHigh); err != nil {
			return nil, err
		}

		pool := model.Pool{
			AssetLow:  common.HexToAddress(assetLow),
			AssetHigh: common.HexToAddress(assetHigh),
			Issuer:    issuer,
		}
		for _, field := range []struct {
			dst *uint256.Int
			src string
		}{
			{&pool.ReserveLow, reserveLow},
			{&pool.ReserveHigh, reserveHigh},
			{&pool.TotalLiquidity, totalLiquidity},
			{&pool.FeeAccumLow, feeLow},
			{&pool.FeeAccumHigh, feeHigh},
		} {
			if err := field.dst.SetFromDecimal(field.src); err != nil {
				return nil, fmt.Errorf("decode pool %s/%s amount: %w", assetLow, assetHigh, err)
			}
		}
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

// Apply commits the pool record and the touched provider balance in one
// transaction.
func (s *Store) Apply(ctx context.Context, update storage.Update) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	pool := update.Pool
	if _, err := tx.Exec(ctx, `
		INSERT INTO amm_pools (
			asset_low, asset_high, issuer, reserve_low, reserve_high,
			total_liquidity, fee_accum_low, fee_accum_high, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		ON CONFLICT (asset_low, asset_high)
		DO UPDATE SET
			reserve_low = EXCLUDED.reserve_low,
			reserve_high = EXCLUDED.reserve_high,
			total_liquidity = EXCLUDED.total_liquidity,
			fee_accum_low = EXCLUDED.fee_accum_low,
			fee_accum_high = EXCLUDED.fee_accum_high,
			updated_at = now()
	`,
		pool.AssetLow.Hex(),
		pool.AssetHigh.Hex(),
		pool.Issuer,
		pool.ReserveLow.Dec(),
		pool.ReserveHigh.Dec(),
		pool.TotalLiquidity.Dec(),
		pool.FeeAccumLow.Dec(),
		pool.FeeAccumHigh.Dec(),
	); err != nil {
		return err
	}

	if balance := update.Balance; balance != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO amm_liquidity (provider, asset_low, asset_high, balance, updated_at)
			VALUES ($1,$2,$3,$4,now())
			ON CONFLICT (provider, asset_low, asset_high)
			DO UPDATE SET balance = EXCLUDED.balance, updated_at = now()
		`,
			balance.Provider,
			balance.AssetLow.Hex(),
			balance.AssetHigh.Hex(),
			balance.Balance.Dec(),
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
