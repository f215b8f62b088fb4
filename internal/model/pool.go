package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool is the reserve and liquidity record for one canonical asset pair.
// Reserves are stored in canonical (low/high) order regardless of the order
// the creator supplied the assets in. Fee accumulators are informational
// running totals; the fee amounts themselves stay inside the reserves.
type Pool struct {
	AssetLow       common.Address `json:"asset_low"`
	AssetHigh      common.Address `json:"asset_high"`
	Issuer         string         `json:"issuer"`
	ReserveLow     uint256.Int    `json:"reserve_low"`
	ReserveHigh    uint256.Int    `json:"reserve_high"`
	TotalLiquidity uint256.Int    `json:"total_liquidity"`
	FeeAccumLow    uint256.Int    `json:"fee_accum_low"`
	FeeAccumHigh   uint256.Int    `json:"fee_accum_high"`
}

// Key returns the pair key the pool is addressed by.
func (p *Pool) Key() PairKey {
	return PairKey{AssetLow: p.AssetLow, AssetHigh: p.AssetHigh}
}

// Exists reports whether the pool is observably active. A zero total supply
// means the pool has never been created (or has been fully drained, which
// behaves the same for pricing).
func (p *Pool) Exists() bool {
	return !p.TotalLiquidity.IsZero()
}
