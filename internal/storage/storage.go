package storage

import (
	"context"

	"github.com/holiman/uint256"

	"ammledger/internal/model"
)

// Update is the complete write set of one ledger operation: the new pool
// state and, for liquidity operations, the one provider balance touched.
// Balance is nil for swaps, which move reserves only. A Store commits the
// whole set atomically or nothing.
type Update struct {
	Pool    model.Pool
	Balance *model.UserLiquidity
}

// Store persists pool and provider-liquidity records keyed by pair.
type Store interface {
	// GetPool returns the pool for a pair key and whether it exists.
	GetPool(ctx context.Context, key model.PairKey) (model.Pool, bool, error)
	// GetBalance returns a provider's liquidity balance, zero for unknown
	// providers.
	GetBalance(ctx context.Context, provider string, key model.PairKey) (uint256.Int, error)
	// ListPools returns all pools in deterministic key order.
	ListPools(ctx context.Context) ([]model.Pool, error)
	// Apply atomically commits an operation's write set.
	Apply(ctx context.Context, update Update) error
}
