package ammmath

import "github.com/holiman/uint256"

// q96 is 2^96, the fixed-point base for sqrtPriceX96 (spec.md GLOSSARY).
var q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

// V3Quote is the result of a single-range concentrated-liquidity swap
// simulation (spec.md §4.1).
type V3Quote struct {
	AmountOut        *uint256.Int
	SqrtPriceNextX96 *uint256.Int
	// CrossesRange is a heuristic flag: true when the price moved enough
	// within this single range that a real pool, which holds liquidity in
	// discrete tick ranges, would likely have crossed into adjacent ranges
	// not reflected by this snapshot's single liquidity value. Implementations
	// without the full tick table cannot detect the real boundary (spec.md §9
	// Open Question); callers must treat CrossesRange as Estimated=true and
	// discount the quote by a configurable safety margin.
	CrossesRange bool
}

// crossesRangeThresholdBps is the heuristic price-move threshold (1%) above
// which we flag a single-range quote as an estimate rather than exact.
const crossesRangeThresholdBps = 100

// V3AmountOut computes the exact-input swap output within a single
// concentrated-liquidity range, using the standard √P/L closed-form
// relations:
//
//	zeroForOne (token0 in, price falls):
//	  sqrtPNext = L*Q96*sqrtP / (L*Q96 + amountInAfterFee*sqrtP)
//	  amountOut = L*(sqrtP - sqrtPNext) / Q96
//
//	!zeroForOne (token1 in, price rises):
//	  sqrtPNext = sqrtP + amountInAfterFee*Q96/L
//	  amountOut = L*Q96*(sqrtPNext - sqrtP) / (sqrtP*sqrtPNext)
//
// Returns a zero quote if liquidity is zero or any intermediate overflows.
func V3AmountOut(sqrtPriceX96, liquidity, amountIn *uint256.Int, zeroForOne bool, fee FeePips) V3Quote {
	zero := V3Quote{AmountOut: uint256.NewInt(0), SqrtPriceNextX96: uint256.NewInt(0)}
	if sqrtPriceX96 == nil || liquidity == nil || amountIn == nil {
		return zero
	}
	if liquidity.IsZero() || sqrtPriceX96.IsZero() || amountIn.IsZero() {
		return zero
	}

	amountInAfterFee := fee.AmountAfterFee(amountIn)
	if amountInAfterFee.IsZero() {
		return zero
	}

	var sqrtPNext *uint256.Int
	var amountOut *uint256.Int
	var overflow bool

	if zeroForOne {
		lq96 := new(uint256.Int).Mul(liquidity, q96)
		numerator, ovf1 := new(uint256.Int).MulDivOverflow(lq96, sqrtPriceX96, uint256.NewInt(1))
		product, ovf2 := new(uint256.Int).MulDivOverflow(amountInAfterFee, sqrtPriceX96, uint256.NewInt(1))
		if ovf1 || ovf2 {
			return zero
		}
		denominator := new(uint256.Int).Add(lq96, product)
		if denominator.IsZero() {
			return zero
		}
		sqrtPNext, overflow = new(uint256.Int).MulDivOverflow(numerator, uint256.NewInt(1), denominator)
		if overflow || sqrtPNext.Cmp(sqrtPriceX96) > 0 {
			return zero
		}
		diff := new(uint256.Int).Sub(sqrtPriceX96, sqrtPNext)
		amountOut, overflow = new(uint256.Int).MulDivOverflow(liquidity, diff, q96)
		if overflow {
			return zero
		}
	} else {
		quotient, ovf := new(uint256.Int).MulDivOverflow(amountInAfterFee, q96, liquidity)
		if ovf {
			return zero
		}
		sqrtPNext = new(uint256.Int).Add(sqrtPriceX96, quotient)

		lq96 := new(uint256.Int).Mul(liquidity, q96)
		diff := new(uint256.Int).Sub(sqrtPNext, sqrtPriceX96)
		numerator, ovf1 := new(uint256.Int).MulDivOverflow(lq96, diff, uint256.NewInt(1))
		denom, ovf2 := new(uint256.Int).MulDivOverflow(sqrtPriceX96, sqrtPNext, uint256.NewInt(1))
		if ovf1 || ovf2 || denom.IsZero() {
			return zero
		}
		amountOut, overflow = new(uint256.Int).MulDivOverflow(numerator, uint256.NewInt(1), denom)
		if overflow {
			return zero
		}
	}

	crosses := priceMovedBeyondBps(sqrtPriceX96, sqrtPNext, crossesRangeThresholdBps)
	return V3Quote{AmountOut: amountOut, SqrtPriceNextX96: sqrtPNext, CrossesRange: crosses}
}

// priceMovedBeyondBps reports whether |b-a|/a exceeds thresholdBps/10000.
func priceMovedBeyondBps(a, b *uint256.Int, thresholdBps uint64) bool {
	if a.IsZero() {
		return true
	}
	var diff uint256.Int
	if a.Cmp(b) >= 0 {
		diff.Sub(a, b)
	} else {
		diff.Sub(b, a)
	}
	lhs := new(uint256.Int).Mul(&diff, uint256.NewInt(10000))
	rhs := new(uint256.Int).Mul(a, uint256.NewInt(thresholdBps))
	return lhs.Cmp(rhs) > 0
}

// V3SpotPriceScaled returns the pool's current price (token1 per token0)
// scaled by 1e18, derived from sqrtPriceX96: price = (sqrtP/2^96)^2.
func V3SpotPriceScaled(sqrtPriceX96 *uint256.Int) *uint256.Int {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return uint256.NewInt(0)
	}
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
	numerator, overflow := new(uint256.Int).MulDivOverflow(sqrtPriceX96, sqrtPriceX96, uint256.NewInt(1))
	if overflow {
		return uint256.NewInt(0)
	}
	numerator, overflow = new(uint256.Int).MulDivOverflow(numerator, scale, uint256.NewInt(1))
	if overflow {
		return uint256.NewInt(0)
	}
	q96Squared := new(uint256.Int).Mul(q96, q96)
	price, overflow := new(uint256.Int).MulDivOverflow(numerator, uint256.NewInt(1), q96Squared)
	if overflow {
		return uint256.NewInt(0)
	}
	return price
}
