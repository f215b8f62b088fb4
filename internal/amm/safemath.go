package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// BpsDenominator converts basis points to a proportion: 10000 bps = 100%.
const BpsDenominator = 10_000

// MaxSafeAmount bounds every amount input: 2^128-1. Products of two
// in-bounds amounts always fit the 256-bit domain, so the overflow checks
// below only trip on values that escaped input validation.
var MaxSafeAmount = maxSafeAmount()

func maxSafeAmount() *uint256.Int {
	max := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	return max.SubUint64(max, 1)
}

// CheckedAdd returns a+b, or ErrOverflow when the sum leaves the domain.
func CheckedAdd(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: add %s + %s", ErrOverflow, a.Dec(), b.Dec())
	}
	return sum, nil
}

// CheckedSub returns a-b, or ErrOverflow when b exceeds a. Ledger callers
// establish b <= a before subtracting reserves; the check is defensive.
func CheckedSub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("%w: sub %s - %s", ErrOverflow, a.Dec(), b.Dec())
	}
	return diff, nil
}

// CheckedMul returns a*b, or ErrOverflow when the product leaves the domain.
// A zero factor short-circuits to zero.
func CheckedMul(a, b *uint256.Int) (*uint256.Int, error) {
	if a.IsZero() || b.IsZero() {
		return new(uint256.Int), nil
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: mul %s * %s", ErrOverflow, a.Dec(), b.Dec())
	}
	return product, nil
}

// CheckedDiv returns a/b truncated, guarding the zero divisor explicitly.
func CheckedDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", ErrOverflow)
	}
	return new(uint256.Int).Div(a, b), nil
}

// MulDivBps returns value*bps/10000 truncated, overflow-checked.
func MulDivBps(value *uint256.Int, bps uint64) (*uint256.Int, error) {
	scaled, err := CheckedMul(value, uint256.NewInt(bps))
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(scaled, uint256.NewInt(BpsDenominator)), nil
}
