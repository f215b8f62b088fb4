package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// MintInitial computes the liquidity minted for a pool's first deposit: the
// integer square root of amountA*amountB. The geometric mean keeps the
// initial mint on the same scale as later proportional mints, so the first
// depositor cannot skew share pricing by choosing a lopsided ratio.
func MintInitial(amountA, amountB *uint256.Int) (*uint256.Int, error) {
	for _, amount := range []*uint256.Int{amountA, amountB} {
		if amount == nil || amount.IsZero() || amount.Gt(MaxSafeAmount) {
			return nil, fmt.Errorf("%w: initial deposit must be in (0, maxSafeAmount]", ErrInvalidAmount)
		}
	}

	product, err := CheckedMul(amountA, amountB)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Sqrt(product), nil
}

// MintProportional computes the liquidity minted for a follow-up deposit
// against current reserves. The smaller of the two per-side ratios wins, so
// a depositor can never mint more than their scarcer-side contribution
// justifies.
func MintProportional(amountA, amountB, reserveA, reserveB, totalSupply *uint256.Int) (*uint256.Int, error) {
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, fmt.Errorf("%w: pool reserves must be positive", ErrInsufficientLiquidity)
	}

	scaledA, err := CheckedMul(amountA, totalSupply)
	if err != nil {
		return nil, err
	}
	lpA := new(uint256.Int).Div(scaledA, reserveA)

	scaledB, err := CheckedMul(amountB, totalSupply)
	if err != nil {
		return nil, err
	}
	lpB := new(uint256.Int).Div(scaledB, reserveB)

	if lpA.Lt(lpB) {
		return lpA, nil
	}
	return lpB, nil
}

// Burn computes the reserve payout for burning liquidityAmount of the
// supply: liquidityAmount*reserve/totalSupply per side, truncating. Rounding
// down biases the last unit of liquidity in the ledger's favor.
func Burn(liquidityAmount, reserveA, reserveB, totalSupply *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if totalSupply.IsZero() || totalSupply.Lt(liquidityAmount) {
		return nil, nil, fmt.Errorf("%w: burn %s exceeds total supply %s",
			ErrInsufficientLiquidity, liquidityAmount.Dec(), totalSupply.Dec())
	}

	scaledA, err := CheckedMul(liquidityAmount, reserveA)
	if err != nil {
		return nil, nil, err
	}
	amountA := new(uint256.Int).Div(scaledA, totalSupply)

	scaledB, err := CheckedMul(liquidityAmount, reserveB)
	if err != nil {
		return nil, nil, err
	}
	amountB := new(uint256.Int).Div(scaledB, totalSupply)

	return amountA, amountB, nil
}
