package amm

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ammledger/internal/model"
)

// ValidateAsset reports whether the identifier denotes a contract-style
// asset: a well-formed 20-byte address that is not the zero account.
func ValidateAsset(asset common.Address) bool {
	return asset != (common.Address{})
}

// ParseAsset parses a hex asset identifier, rejecting malformed input and
// the zero address.
func ParseAsset(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: malformed asset identifier %q", ErrInvalidToken, s)
	}
	asset := common.HexToAddress(s)
	if !ValidateAsset(asset) {
		return common.Address{}, fmt.Errorf("%w: zero asset identifier", ErrInvalidToken)
	}
	return asset, nil
}

// DerivePair canonicalizes an unordered asset pair into the key all storage
// is addressed by. The lexicographically smaller encoding becomes the low
// side, so DerivePair(a, b) == DerivePair(b, a) for all valid distinct
// assets. Self-pairs and invalid assets never produce a usable key.
func DerivePair(a, b common.Address) (model.PairKey, error) {
	if !ValidateAsset(a) || !ValidateAsset(b) {
		return model.PairKey{}, fmt.Errorf("%w: asset is not a valid contract identifier", ErrInvalidToken)
	}
	if a == b {
		return model.PairKey{}, fmt.Errorf("%w: identical assets %s", ErrInvalidToken, a.Hex())
	}
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return model.PairKey{AssetLow: a, AssetHigh: b}, nil
}
