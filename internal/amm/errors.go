package amm

import "errors"

// Terminal outcomes reported to callers. Every failure aborts the enclosing
// operation with no state mutation; retry is the caller's concern.
var (
	ErrNotAuthorized         = errors.New("not authorized")
	ErrInvalidPool           = errors.New("pool does not exist")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrSlippageTooHigh       = errors.New("slippage tolerance exceeded")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidToken          = errors.New("invalid token")
	ErrPoolExists            = errors.New("pool already exists")
	ErrOverflow              = errors.New("arithmetic overflow")
)
