package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"ammledger/internal/amm"
	"ammledger/internal/model"
	"ammledger/internal/storage"
)

// Config holds the instance-level settings of a ledger.
type Config struct {
	// Admin is the only caller identity allowed to change the fee rate.
	Admin string
	// FeeRateBps is the initial swap fee in basis points, at most 1000.
	FeeRateBps uint64
}

// Ledger owns the pool and provider-liquidity bookkeeping and orchestrates
// the pricing and liquidity math into the public operations. Each operation
// executes as one atomic unit: operations on the same pair are serialized by
// a per-pair lock held across the whole read-validate-write span, operations
// on different pairs proceed concurrently, and a failed operation commits
// nothing.
//
// The ledger only adjusts bookkeeping numbers; moving the underlying assets
// is the integrating system's responsibility, performed in the same unit of
// work as the store commit.
type Ledger struct {
	store  storage.Store
	logger *zap.Logger
	admin  string

	feeMu      sync.RWMutex
	feeRateBps uint64

	lockMu    sync.Mutex
	pairLocks map[model.PairKey]*sync.Mutex
}

// New builds a Ledger over the given store.
func New(store storage.Store, logger *zap.Logger, cfg Config) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FeeRateBps > amm.MaxFeeRateBps {
		return nil, fmt.Errorf("%w: fee rate %d exceeds %d bps", amm.ErrInvalidAmount, cfg.FeeRateBps, amm.MaxFeeRateBps)
	}
	return &Ledger{
		store:      store,
		logger:     logger,
		admin:      cfg.Admin,
		feeRateBps: cfg.FeeRateBps,
		pairLocks:  make(map[model.PairKey]*sync.Mutex),
	}, nil
}

// CreatePool creates the pool for an unordered asset pair with its first
// deposit, minting sqrt(amountA*amountB) liquidity to the caller.
func (l *Ledger) CreatePool(ctx context.Context, assetA, assetB common.Address, amountA, amountB *uint256.Int, caller string) (model.Pool, error) {
	key, err := amm.DerivePair(assetA, assetB)
	if err != nil {
		return model.Pool{}, err
	}
	if err := validateAmount(amountA); err != nil {
		return model.Pool{}, err
	}
	if err := validateAmount(amountB); err != nil {
		return model.Pool{}, err
	}

	unlock := l.lockPair(key)
	defer unlock()

	existing, ok, err := l.store.GetPool(ctx, key)
	if err != nil {
		return model.Pool{}, fmt.Errorf("read pool %s: %w", key, err)
	}
	if ok && existing.Exists() {
		return model.Pool{}, fmt.Errorf("%w: %s", amm.ErrPoolExists, key)
	}

	initial, err := amm.MintInitial(amountA, amountB)
	if err != nil {
		return model.Pool{}, err
	}
	if initial.IsZero() {
		return model.Pool{}, fmt.Errorf("%w: initial deposit too small to mint liquidity", amm.ErrInsufficientLiquidity)
	}

	amountLow, amountHigh := mapToCanonical(key, assetA, amountA, amountB)

	pool := model.Pool{
		AssetLow:       key.AssetLow,
		AssetHigh:      key.AssetHigh,
		Issuer:         caller,
		ReserveLow:     *amountLow,
		ReserveHigh:    *amountHigh,
		TotalLiquidity: *initial,
	}
	balance := model.UserLiquidity{
		Provider:  caller,
		AssetLow:  key.AssetLow,
		AssetHigh: key.AssetHigh,
		Balance:   *initial,
	}

	if err := l.store.Apply(ctx, storage.Update{Pool: pool, Balance: &balance}); err != nil {
		return model.Pool{}, fmt.Errorf("commit pool %s: %w", key, err)
	}

	l.logger.Info("pool created",
		zap.String("pair", key.String()),
		zap.String("creator", caller),
		zap.String("reserve_low", amountLow.Dec()),
		zap.String("reserve_high", amountHigh.Dec()),
		zap.String("liquidity", initial.Dec()),
	)
	return pool, nil
}

// AddLiquidity deposits into an existing pool, minting liquidity
// proportional to the scarcer side of the contribution.
func (l *Ledger) AddLiquidity(ctx context.Context, assetA, assetB common.Address, amountA, amountB *uint256.Int, caller string) (*uint256.Int, error) {
	key, err := amm.DerivePair(assetA, assetB)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(amountA); err != nil {
		return nil, err
	}
	if err := validateAmount(amountB); err != nil {
		return nil, err
	}

	unlock := l.lockPair(key)
	defer unlock()

	pool, ok, err := l.store.GetPool(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read pool %s: %w", key, err)
	}
	if !ok || !pool.Exists() {
		return nil, fmt.Errorf("%w: %s", amm.ErrInvalidPool, key)
	}

	amountLow, amountHigh := mapToCanonical(key, assetA, amountA, amountB)

	minted, err := amm.MintProportional(amountLow, amountHigh, &pool.ReserveLow, &pool.ReserveHigh, &pool.TotalLiquidity)
	if err != nil {
		return nil, err
	}
	if minted.IsZero() {
		return nil, fmt.Errorf("%w: contribution too small to mint liquidity", amm.ErrInsufficientLiquidity)
	}

	newReserveLow, err := amm.CheckedAdd(&pool.ReserveLow, amountLow)
	if err != nil {
		return nil, err
	}
	newReserveHigh, err := amm.CheckedAdd(&pool.ReserveHigh, amountHigh)
	if err != nil {
		return nil, err
	}
	newTotal, err := amm.CheckedAdd(&pool.TotalLiquidity, minted)
	if err != nil {
		return nil, err
	}

	current, err := l.store.GetBalance(ctx, caller, key)
	if err != nil {
		return nil, fmt.Errorf("read balance for %s on %s: %w", caller, key, err)
	}
	newBalance, err := amm.CheckedAdd(&current, minted)
	if err != nil {
		return nil, err
	}

	pool.ReserveLow = *newReserveLow
	pool.ReserveHigh = *newReserveHigh
	pool.TotalLiquidity = *newTotal
	balance := model.UserLiquidity{
		Provider:  caller,
		AssetLow:  key.AssetLow,
		AssetHigh: key.AssetHigh,
		Balance:   *newBalance,
	}

	if err := l.store.Apply(ctx, storage.Update{Pool: pool, Balance: &balance}); err != nil {
		return nil, fmt.Errorf("commit pool %s: %w", key, err)
	}

	l.logger.Info("liquidity added",
		zap.String("pair", key.String()),
		zap.String("provider", caller),
		zap.String("minted", minted.Dec()),
		zap.String("total_liquidity", newTotal.Dec()),
	)
	return minted, nil
}

// RemoveLiquidity burns the caller's liquidity for a proportional reserve
// payout, returned in the caller's (assetA, assetB) order.
func (l *Ledger) RemoveLiquidity(ctx context.Context, assetA, assetB common.Address, liquidityAmount *uint256.Int, caller string) (*uint256.Int, *uint256.Int, error) {
	key, err := amm.DerivePair(assetA, assetB)
	if err != nil {
		return nil, nil, err
	}
	if err := validateAmount(liquidityAmount); err != nil {
		return nil, nil, err
	}

	unlock := l.lockPair(key)
	defer unlock()

	pool, ok, err := l.store.GetPool(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("read pool %s: %w", key, err)
	}
	if !ok || !pool.Exists() {
		return nil, nil, fmt.Errorf("%w: %s", amm.ErrInvalidPool, key)
	}

	current, err := l.store.GetBalance(ctx, caller, key)
	if err != nil {
		return nil, nil, fmt.Errorf("read balance for %s on %s: %w", caller, key, err)
	}
	if current.Lt(liquidityAmount) {
		return nil, nil, fmt.Errorf("%w: balance %s below burn amount %s",
			amm.ErrInsufficientLiquidity, current.Dec(), liquidityAmount.Dec())
	}

	payoutLow, payoutHigh, err := amm.Burn(liquidityAmount, &pool.ReserveLow, &pool.ReserveHigh, &pool.TotalLiquidity)
	if err != nil {
		return nil, nil, err
	}

	// Non-negative by the balance and supply checks above; CheckedSub guards
	// the invariant anyway.
	newReserveLow, err := amm.CheckedSub(&pool.ReserveLow, payoutLow)
	if err != nil {
		return nil, nil, err
	}
	newReserveHigh, err := amm.CheckedSub(&pool.ReserveHigh, payoutHigh)
	if err != nil {
		return nil, nil, err
	}
	newTotal, err := amm.CheckedSub(&pool.TotalLiquidity, liquidityAmount)
	if err != nil {
		return nil, nil, err
	}
	newBalance, err := amm.CheckedSub(&current, liquidityAmount)
	if err != nil {
		return nil, nil, err
	}

	pool.ReserveLow = *newReserveLow
	pool.ReserveHigh = *newReserveHigh
	pool.TotalLiquidity = *newTotal
	balance := model.UserLiquidity{
		Provider:  caller,
		AssetLow:  key.AssetLow,
		AssetHigh: key.AssetHigh,
		Balance:   *newBalance,
	}

	if err := l.store.Apply(ctx, storage.Update{Pool: pool, Balance: &balance}); err != nil {
		return nil, nil, fmt.Errorf("commit pool %s: %w", key, err)
	}

	l.logger.Info("liquidity removed",
		zap.String("pair", key.String()),
		zap.String("provider", caller),
		zap.String("burned", liquidityAmount.Dec()),
		zap.String("payout_low", payoutLow.Dec()),
		zap.String("payout_high", payoutHigh.Dec()),
	)

	if assetA == key.AssetLow {
		return payoutLow, payoutHigh, nil
	}
	return payoutHigh, payoutLow, nil
}

// SwapExactTokensForTokens swaps amountIn of tokenIn for tokenOut at the
// constant-product price, failing when the output falls below minAmountOut.
// Fees stay in the input-side reserve, compounding into the redemption value
// of existing liquidity.
func (l *Ledger) SwapExactTokensForTokens(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *uint256.Int, caller string) (*uint256.Int, error) {
	key, err := amm.DerivePair(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(amountIn); err != nil {
		return nil, err
	}
	if err := validateAmount(minAmountOut); err != nil {
		return nil, err
	}

	unlock := l.lockPair(key)
	defer unlock()

	pool, ok, err := l.store.GetPool(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read pool %s: %w", key, err)
	}
	if !ok || !pool.Exists() {
		return nil, fmt.Errorf("%w: %s", amm.ErrInvalidPool, key)
	}

	inIsLow := tokenIn == key.AssetLow
	reserveIn, reserveOut := &pool.ReserveLow, &pool.ReserveHigh
	if !inIsLow {
		reserveIn, reserveOut = &pool.ReserveHigh, &pool.ReserveLow
	}

	quote, err := amm.QuoteSwap(amountIn, reserveIn, reserveOut, l.FeeRate())
	if err != nil {
		return nil, err
	}
	if quote.AmountOut.Lt(minAmountOut) {
		return nil, fmt.Errorf("%w: output %s below minimum %s",
			amm.ErrSlippageTooHigh, quote.AmountOut.Dec(), minAmountOut.Dec())
	}
	if reserveOut.Lt(quote.AmountOut) {
		return nil, fmt.Errorf("%w: output %s exceeds reserve %s",
			amm.ErrInsufficientLiquidity, quote.AmountOut.Dec(), reserveOut.Dec())
	}

	newReserveIn, err := amm.CheckedAdd(reserveIn, amountIn)
	if err != nil {
		return nil, err
	}
	newReserveOut, err := amm.CheckedSub(reserveOut, quote.AmountOut)
	if err != nil {
		return nil, err
	}

	if inIsLow {
		newFeeAccum, err := amm.CheckedAdd(&pool.FeeAccumLow, quote.FeeAmount)
		if err != nil {
			return nil, err
		}
		pool.ReserveLow = *newReserveIn
		pool.ReserveHigh = *newReserveOut
		pool.FeeAccumLow = *newFeeAccum
	} else {
		newFeeAccum, err := amm.CheckedAdd(&pool.FeeAccumHigh, quote.FeeAmount)
		if err != nil {
			return nil, err
		}
		pool.ReserveHigh = *newReserveIn
		pool.ReserveLow = *newReserveOut
		pool.FeeAccumHigh = *newFeeAccum
	}

	if err := l.store.Apply(ctx, storage.Update{Pool: pool}); err != nil {
		return nil, fmt.Errorf("commit pool %s: %w", key, err)
	}

	l.logger.Info("swap executed",
		zap.String("pair", key.String()),
		zap.String("trader", caller),
		zap.String("token_in", tokenIn.Hex()),
		zap.String("amount_in", amountIn.Dec()),
		zap.String("amount_out", quote.AmountOut.Dec()),
		zap.String("fee", quote.FeeAmount.Dec()),
	)
	return quote.AmountOut, nil
}

// Quote previews a swap against current state without mutating anything.
func (l *Ledger) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	key, err := amm.DerivePair(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	pool, ok, err := l.store.GetPool(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read pool %s: %w", key, err)
	}
	if !ok || !pool.Exists() {
		return nil, fmt.Errorf("%w: %s", amm.ErrInvalidPool, key)
	}

	reserveIn, reserveOut := &pool.ReserveLow, &pool.ReserveHigh
	if tokenIn != key.AssetLow {
		reserveIn, reserveOut = &pool.ReserveHigh, &pool.ReserveLow
	}

	quote, err := amm.QuoteSwap(amountIn, reserveIn, reserveOut, l.FeeRate())
	if err != nil {
		return nil, err
	}
	return quote.AmountOut, nil
}

// HasPool reports whether a pool is active for the unordered pair.
func (l *Ledger) HasPool(ctx context.Context, assetA, assetB common.Address) (bool, error) {
	key, err := amm.DerivePair(assetA, assetB)
	if err != nil {
		return false, err
	}
	pool, ok, err := l.store.GetPool(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read pool %s: %w", key, err)
	}
	return ok && pool.Exists(), nil
}

// Pool returns a snapshot of the pool for the unordered pair.
func (l *Ledger) Pool(ctx context.Context, assetA, assetB common.Address) (model.Pool, error) {
	key, err := amm.DerivePair(assetA, assetB)
	if err != nil {
		return model.Pool{}, err
	}
	pool, ok, err := l.store.GetPool(ctx, key)
	if err != nil {
		return model.Pool{}, fmt.Errorf("read pool %s: %w", key, err)
	}
	if !ok || !pool.Exists() {
		return model.Pool{}, fmt.Errorf("%w: %s", amm.ErrInvalidPool, key)
	}
	return pool, nil
}

// ListPools returns snapshots of all active pools.
func (l *Ledger) ListPools(ctx context.Context) ([]model.Pool, error) {
	pools, err := l.store.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	active := pools[:0]
	for _, pool := range pools {
		if pool.Exists() {
			active = append(active, pool)
		}
	}
	return active, nil
}

// LiquidityOf returns a provider's liquidity balance, zero for unknown
// providers.
func (l *Ledger) LiquidityOf(ctx context.Context, assetA, assetB common.Address, provider string) (*uint256.Int, error) {
	key, err := amm.DerivePair(assetA, assetB)
	if err != nil {
		return nil, err
	}
	balance, err := l.store.GetBalance(ctx, provider, key)
	if err != nil {
		return nil, fmt.Errorf("read balance for %s on %s: %w", provider, key, err)
	}
	return &balance, nil
}

// FeeRate returns the current swap fee in basis points.
func (l *Ledger) FeeRate() uint64 {
	l.feeMu.RLock()
	defer l.feeMu.RUnlock()
	return l.feeRateBps
}

// SetFeeRate updates the swap fee. Only the configured administrator may
// call it, and the rate is capped at 1000 bps.
func (l *Ledger) SetFeeRate(newRateBps uint64, caller string) error {
	if caller != l.admin {
		return fmt.Errorf("%w: caller %q is not the administrator", amm.ErrNotAuthorized, caller)
	}
	if newRateBps > amm.MaxFeeRateBps {
		return fmt.Errorf("%w: fee rate %d exceeds %d bps", amm.ErrInvalidAmount, newRateBps, amm.MaxFeeRateBps)
	}

	l.feeMu.Lock()
	l.feeRateBps = newRateBps
	l.feeMu.Unlock()

	l.logger.Info("fee rate updated", zap.Uint64("fee_rate_bps", newRateBps), zap.String("admin", caller))
	return nil
}

// lockPair serializes operations on one pair. Locks are created lazily and
// kept for the ledger's lifetime; the pair space in practice is small.
func (l *Ledger) lockPair(key model.PairKey) func() {
	l.lockMu.Lock()
	mu, ok := l.pairLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		l.pairLocks[key] = mu
	}
	l.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func validateAmount(amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: amount must be positive", amm.ErrInvalidAmount)
	}
	if amount.Gt(amm.MaxSafeAmount) {
		return fmt.Errorf("%w: amount %s exceeds maximum safe amount", amm.ErrInvalidAmount, amount.Dec())
	}
	return nil
}

// mapToCanonical reorders caller-supplied amounts into (low, high) reserve
// order for the derived key.
func mapToCanonical(key model.PairKey, assetA common.Address, amountA, amountB *uint256.Int) (*uint256.Int, *uint256.Int) {
	if assetA == key.AssetLow {
		return amountA, amountB
	}
	return amountB, amountA
}
