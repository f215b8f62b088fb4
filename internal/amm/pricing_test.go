package amm

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestQuoteSwapReferenceValues(t *testing.T) {
	// With reserves (1000,1000) and 300 bps: fee=3, net=97,
	// out = 97*1000/(1000+97) = 97000/1097 = 88 truncated.
	quote, err := QuoteSwap(uint256.NewInt(100), uint256.NewInt(1000), uint256.NewInt(1000), 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.FeeAmount.Uint64() != 3 {
		t.Fatalf("fee mismatch: got %s, want 3", quote.FeeAmount.Dec())
	}
	if quote.AmountOut.Uint64() != 88 {
		t.Fatalf("output mismatch: got %s, want 88", quote.AmountOut.Dec())
	}
}

func TestQuoteSwapZeroFee(t *testing.T) {
	quote, err := QuoteSwap(uint256.NewInt(100), uint256.NewInt(1000), uint256.NewInt(1000), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.FeeAmount.Uint64() != 0 {
		t.Fatalf("expected zero fee, got %s", quote.FeeAmount.Dec())
	}
	// 100*1000/1100 = 90 truncated
	if quote.AmountOut.Uint64() != 90 {
		t.Fatalf("output mismatch: got %s, want 90", quote.AmountOut.Dec())
	}
}

func TestQuoteSwapInvalidInput(t *testing.T) {
	if _, err := QuoteSwap(new(uint256.Int), uint256.NewInt(1000), uint256.NewInt(1000), 300); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero input, got %v", err)
	}

	above := new(uint256.Int).AddUint64(MaxSafeAmount, 1)
	if _, err := QuoteSwap(above, uint256.NewInt(1000), uint256.NewInt(1000), 300); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount above max safe amount, got %v", err)
	}
}

func TestQuoteSwapEmptyReserves(t *testing.T) {
	if _, err := QuoteSwap(uint256.NewInt(100), new(uint256.Int), uint256.NewInt(1000), 300); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if _, err := QuoteSwap(uint256.NewInt(100), uint256.NewInt(1000), new(uint256.Int), 300); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestQuoteSwapProductNeverDecreases(t *testing.T) {
	cases := []struct {
		amountIn, reserveIn, reserveOut uint64
		feeBps                          uint64
	}{
		{1, 1000, 1000, 300},
		{100, 1000, 1000, 300},
		{999, 1000, 1000, 0},
		{5000, 1234, 98765, 1000},
		{7, 3, 11, 30},
	}
	for _, tc := range cases {
		quote, err := QuoteSwap(uint256.NewInt(tc.amountIn), uint256.NewInt(tc.reserveIn), uint256.NewInt(tc.reserveOut), tc.feeBps)
		if err != nil {
			t.Fatalf("quote(%+v) failed: %v", tc, err)
		}

		before := new(uint256.Int).Mul(uint256.NewInt(tc.reserveIn), uint256.NewInt(tc.reserveOut))
		newIn := new(uint256.Int).AddUint64(uint256.NewInt(tc.reserveIn), tc.amountIn)
		newOut := new(uint256.Int).Sub(uint256.NewInt(tc.reserveOut), quote.AmountOut)
		after := new(uint256.Int).Mul(newIn, newOut)

		if after.Lt(before) {
			t.Fatalf("product decreased for %+v: %s < %s", tc, after.Dec(), before.Dec())
		}
	}
}
