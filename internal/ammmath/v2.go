package ammmath

import "github.com/holiman/uint256"

// V2AmountOut computes the constant-product exact output for an input of
// aIn against reserves (rIn, rOut) at fee numerator f, per spec.md §4.1:
//
//	a_eff = a_in * F
//	out   = (a_eff * R_out) / (R_in * 10000 + a_eff)
//
// Returns zero if either reserve is zero, never panics, and never overflows
// 256 bits because the multiply-then-divide is carried out with a 512-bit
// intermediate (uint256.MulDivOverflow).
func V2AmountOut(aIn, rIn, rOut *uint256.Int, f FeeNumerator) *uint256.Int {
	if aIn == nil || rIn == nil || rOut == nil {
		return uint256.NewInt(0)
	}
	if rIn.IsZero() || rOut.IsZero() || aIn.IsZero() {
		return uint256.NewInt(0)
	}

	fNum := uint256.NewInt(uint64(f))
	aEff, overflow := new(uint256.Int).MulDivOverflow(aIn, fNum, uint256.NewInt(1))
	if overflow {
		return uint256.NewInt(0)
	}

	rInScaled, overflow := new(uint256.Int).MulDivOverflow(rIn, uint256.NewInt(feeDenominator), uint256.NewInt(1))
	if overflow {
		return uint256.NewInt(0)
	}
	denominator := new(uint256.Int).Add(rInScaled, aEff)
	if denominator.IsZero() {
		return uint256.NewInt(0)
	}

	out, overflow := new(uint256.Int).MulDivOverflow(aEff, rOut, denominator)
	if overflow {
		return uint256.NewInt(0)
	}
	return out
}

// V2AmountIn computes the input amount required to receive exactly aOut from
// reserves (rIn, rOut) at fee numerator f — the algebraic inverse of
// V2AmountOut, floor-rounded up by one unit to guarantee the output is met
// (standard router convention). Returns zero if aOut >= rOut (impossible).
func V2AmountIn(aOut, rIn, rOut *uint256.Int, f FeeNumerator) *uint256.Int {
	if aOut == nil || rIn == nil || rOut == nil || aOut.IsZero() {
		return uint256.NewInt(0)
	}
	if rIn.IsZero() || rOut.IsZero() || aOut.Cmp(rOut) >= 0 {
		return uint256.NewInt(0)
	}

	numerator, overflow := new(uint256.Int).MulDivOverflow(rIn, aOut, uint256.NewInt(1))
	if overflow {
		return uint256.NewInt(0)
	}
	numerator = new(uint256.Int).Mul(numerator, uint256.NewInt(feeDenominator))
	denominator := new(uint256.Int).Sub(rOut, aOut)
	fNum := uint256.NewInt(uint64(f))

	aIn, overflow := new(uint256.Int).MulDivOverflow(numerator, uint256.NewInt(1), new(uint256.Int).Mul(denominator, fNum))
	if overflow {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).AddUint64(aIn, 1)
}

// V2SpotPriceScaled returns reserveOut/reserveIn scaled by 1e18 (fixed-point,
// no fee applied) — used for coarse pre-screening before the exact V2AmountOut
// simulation, never for final profit. Returns zero if rIn is zero.
func V2SpotPriceScaled(rIn, rOut *uint256.Int) *uint256.Int {
	if rIn == nil || rOut == nil || rIn.IsZero() {
		return uint256.NewInt(0)
	}
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
	price, overflow := new(uint256.Int).MulDivOverflow(rOut, scale, rIn)
	if overflow {
		return uint256.NewInt(0)
	}
	return price
}

// PriceImpactBound reports whether aIn exceeds the hard price-impact cap of
// 30% of reserve-in, per spec.md §4.10's optimizer edge case.
func PriceImpactBound(aIn, rIn *uint256.Int) bool {
	if aIn == nil || rIn == nil {
		return true
	}
	cap := new(uint256.Int).Div(new(uint256.Int).Mul(rIn, uint256.NewInt(3)), uint256.NewInt(10))
	return aIn.Cmp(cap) > 0
}
