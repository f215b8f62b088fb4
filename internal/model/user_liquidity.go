package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// UserLiquidity is one provider's share of a pool's liquidity supply, keyed
// by (provider, pair). A zero balance is the empty state; records are never
// explicitly deleted.
type UserLiquidity struct {
	Provider  string         `json:"provider"`
	AssetLow  common.Address `json:"asset_low"`
	AssetHigh common.Address `json:"asset_high"`
	Balance   uint256.Int    `json:"balance"`
}

// Key returns the pair key the balance is scoped to.
func (u *UserLiquidity) Key() PairKey {
	return PairKey{AssetLow: u.AssetLow, AssetHigh: u.AssetHigh}
}
