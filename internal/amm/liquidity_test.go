package amm

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestMintInitialGeometricMean(t *testing.T) {
	minted, err := MintInitial(uint256.NewInt(1000), uint256.NewInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted.Uint64() != 1000 {
		t.Fatalf("minted mismatch: got %s, want 1000", minted.Dec())
	}
}

func TestMintInitialTruncatesRoot(t *testing.T) {
	// sqrt(500000) = 707.1... -> 707
	minted, err := MintInitial(uint256.NewInt(1000), uint256.NewInt(500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted.Uint64() != 707 {
		t.Fatalf("minted mismatch: got %s, want 707", minted.Dec())
	}
}

func TestMintInitialInvalidAmounts(t *testing.T) {
	if _, err := MintInitial(new(uint256.Int), uint256.NewInt(1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero amount, got %v", err)
	}
	above := new(uint256.Int).AddUint64(MaxSafeAmount, 1)
	if _, err := MintInitial(uint256.NewInt(1), above); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount above max safe amount, got %v", err)
	}
}

func TestMintProportionalTakesScarcerSide(t *testing.T) {
	// reserves (1000, 2000), supply 3000. Deposit (100, 100):
	// lpA = 100*3000/1000 = 300, lpB = 100*3000/2000 = 150 -> 150.
	minted, err := MintProportional(
		uint256.NewInt(100), uint256.NewInt(100),
		uint256.NewInt(1000), uint256.NewInt(2000),
		uint256.NewInt(3000),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minted.Uint64() != 150 {
		t.Fatalf("minted mismatch: got %s, want 150", minted.Dec())
	}
}

func TestMintProportionalEmptyReserves(t *testing.T) {
	_, err := MintProportional(
		uint256.NewInt(100), uint256.NewInt(100),
		new(uint256.Int), uint256.NewInt(2000),
		uint256.NewInt(3000),
	)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestMintProportionalOverflow(t *testing.T) {
	big := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	_, err := MintProportional(big, big, uint256.NewInt(1), uint256.NewInt(1), big)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestBurnFullSupply(t *testing.T) {
	// supply 2000, reserves (1000, 500), burn 2000 -> (1000, 500).
	amountA, amountB, err := Burn(
		uint256.NewInt(2000),
		uint256.NewInt(1000), uint256.NewInt(500),
		uint256.NewInt(2000),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amountA.Uint64() != 1000 || amountB.Uint64() != 500 {
		t.Fatalf("payout mismatch: got (%s, %s), want (1000, 500)", amountA.Dec(), amountB.Dec())
	}
}

func TestBurnRoundsDown(t *testing.T) {
	// 1*1000/3 = 333, 1*500/3 = 166 -- truncation favors the ledger.
	amountA, amountB, err := Burn(
		uint256.NewInt(1),
		uint256.NewInt(1000), uint256.NewInt(500),
		uint256.NewInt(3),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amountA.Uint64() != 333 || amountB.Uint64() != 166 {
		t.Fatalf("payout mismatch: got (%s, %s), want (333, 166)", amountA.Dec(), amountB.Dec())
	}
}

func TestBurnExceedsSupply(t *testing.T) {
	_, _, err := Burn(
		uint256.NewInt(3000),
		uint256.NewInt(1000), uint256.NewInt(500),
		uint256.NewInt(2000),
	)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}

	_, _, err = Burn(
		uint256.NewInt(1),
		uint256.NewInt(1000), uint256.NewInt(500),
		new(uint256.Int),
	)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity for zero supply, got %v", err)
	}
}
