// Package ammmath implements exact-output and spot-price primitives for
// constant-product (v2) and concentrated-liquidity (v3) AMM pools, entirely
// on github.com/holiman/uint256 — go-ethereum's own 256-bit integer type —
// so no floating point ever enters the hot path, per spec.md §9.
package ammmath

import "github.com/holiman/uint256"

// feeDenominator is the fixed-point base used for v2 fee numerators, per
// spec.md §4.1: F = floor((1-f)*10000).
const feeDenominator = 10000

// FeeNumerator is a precomputed v2 fee numerator F = floor((1-f)*10000),
// where f is the pool's fractional swap fee (e.g. 0.003 for 0.3%). Computing
// it once at config-load time keeps the float->int conversion out of the
// per-swap hot path.
type FeeNumerator uint64

// NewFeeNumerator converts a fractional swap fee (0..0.1) into its fixed
// v2 numerator. Values outside [0,1) clamp to the nearest valid numerator.
func NewFeeNumerator(fee float64) FeeNumerator {
	if fee < 0 {
		fee = 0
	}
	if fee >= 1 {
		fee = 0.9999
	}
	f := uint64((1 - fee) * feeDenominator)
	return FeeNumerator(f)
}

// FeePips is a v3-style fee expressed in hundredths of a basis point (the
// Uniswap V3 convention: 500/3000/10000 = 0.05%/0.3%/1%).
type FeePips uint32

const feePipsDenominator = 1_000_000

// AmountAfterFee returns amountIn reduced by this fee, using uint256's
// overflow-safe 512-bit mul/div so large reserves never wrap silently.
func (f FeePips) AmountAfterFee(amountIn *uint256.Int) *uint256.Int {
	if amountIn == nil || amountIn.IsZero() {
		return uint256.NewInt(0)
	}
	remaining := uint256.NewInt(feePipsDenominator - uint64(f))
	denom := uint256.NewInt(feePipsDenominator)
	out, overflow := new(uint256.Int).MulDivOverflow(amountIn, remaining, denom)
	if overflow {
		return uint256.NewInt(0)
	}
	return out
}
