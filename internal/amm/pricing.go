package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Fee rate bounds in basis points. The default matches the common 0.3%
// constant-product fee; the cap is 10%.
const (
	DefaultFeeRateBps = 300
	MaxFeeRateBps     = 1_000
)

// Quote is the outcome of a swap price computation.
type Quote struct {
	AmountOut *uint256.Int
	FeeAmount *uint256.Int
}

// QuoteSwap computes the constant-product output for amountIn against the
// given reserves, deducting a proportional fee from the input before the
// exchange:
//
//	fee    = amountIn * feeRateBps / 10000
//	net    = amountIn - fee
//	out    = net * reserveOut / (reserveIn + net)
//
// All divisions truncate, rounding in the pool's favor, so the reserve
// product never decreases across a swap.
func QuoteSwap(amountIn, reserveIn, reserveOut *uint256.Int, feeRateBps uint64) (Quote, error) {
	if amountIn == nil || amountIn.IsZero() || amountIn.Gt(MaxSafeAmount) {
		return Quote{}, fmt.Errorf("%w: swap input must be in (0, maxSafeAmount]", ErrInvalidAmount)
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return Quote{}, fmt.Errorf("%w: pool reserves must be positive", ErrInsufficientLiquidity)
	}

	feeAmount, err := MulDivBps(amountIn, feeRateBps)
	if err != nil {
		return Quote{}, err
	}
	amountInNet := new(uint256.Int).Sub(amountIn, feeAmount)

	numerator, err := CheckedMul(amountInNet, reserveOut)
	if err != nil {
		return Quote{}, err
	}
	denominator, err := CheckedAdd(reserveIn, amountInNet)
	if err != nil {
		return Quote{}, err
	}

	amountOut, err := CheckedDiv(numerator, denominator)
	if err != nil {
		return Quote{}, err
	}
	return Quote{AmountOut: amountOut, FeeAmount: feeAmount}, nil
}
