package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// PairKey is the canonical identity of a pool: the two asset contract
// addresses ordered by their byte encoding. It is the sole key under which
// pool and liquidity records are addressed, and is usable directly as a map
// key.
type PairKey struct {
	AssetLow  common.Address `json:"asset_low"`
	AssetHigh common.Address `json:"asset_high"`
}

// String renders the key for logs and error messages.
func (k PairKey) String() string {
	return k.AssetLow.Hex() + "/" + k.AssetHigh.Hex()
}
