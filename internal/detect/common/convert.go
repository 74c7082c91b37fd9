package common

import (
	"math/big"

	"github.com/holiman/uint256"
)

// ToFloat64 converts a 256-bit token amount to a float64, for handing off to
// the float64-based golden-section optimizer (internal/optimize). This is
// lossy above 2^53 and is only ever used for search, never for the final
// on-chain-accurate amount (which stays in uint256 throughout).
func ToFloat64(x *uint256.Int) float64 {
	if x == nil {
		return 0
	}
	f := new(big.Float).SetInt(x.ToBig())
	out, _ := f.Float64()
	return out
}

// FromFloat64 converts an optimizer-chosen float64 input amount back to a
// uint256, truncating toward zero. Negative or non-finite inputs return 0.
func FromFloat64(x float64) *uint256.Int {
	if x <= 0 {
		return uint256.NewInt(0)
	}
	bf := new(big.Float).SetFloat64(x)
	bi, _ := bf.Int(nil)
	out, overflow := uint256.FromBig(bi)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return out
}
