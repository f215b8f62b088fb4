package amm

import "github.com/holiman/uint256"

// WithinTolerance reports whether actualAmount is no more than
// maxSlippageBps below expectedAmount. When computing the allowance would
// overflow the domain the guard fails closed, never open.
//
// The swap path enforces the stricter amountOut >= minAmountOut form
// directly; this parametrized form serves quote-preview comparisons.
func WithinTolerance(expectedAmount, actualAmount *uint256.Int, maxSlippageBps uint64) bool {
	allowance, overflow := new(uint256.Int).MulOverflow(expectedAmount, uint256.NewInt(maxSlippageBps))
	if overflow {
		return false
	}
	allowance.Div(allowance, uint256.NewInt(BpsDenominator))
	minExpected := new(uint256.Int).Sub(expectedAmount, allowance)
	return !actualAmount.Lt(minExpected)
}
