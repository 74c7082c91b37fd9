package optimize

import "math"

// TwoHopSeed computes the closed-form optimal input for a two-hop
// constant-product arbitrage (buy on one v2 pool, sell on another), used to
// narrow the golden-section bracket before refinement (spec.md §4.10 step 1).
//
// reserveInBuy/reserveOutBuy are the buy-DEX pool's reserves for
// base->quote; reserveInSell/reserveOutSell are the sell-DEX pool's
// reserves for quote->base. feeBuy/feeSell are fee multipliers, e.g. 0.997
// for a 0.3% v2 fee.
func TwoHopSeed(reserveInBuy, reserveOutBuy, reserveInSell, reserveOutSell, feeBuy, feeSell float64) (x float64, ok bool) {
	if reserveInBuy <= 0 || reserveOutBuy <= 0 || reserveInSell <= 0 || reserveOutSell <= 0 {
		return 0, false
	}
	if feeBuy <= 0 || feeSell <= 0 {
		return 0, false
	}

	num := feeBuy * feeSell * reserveInBuy * reserveOutBuy * reserveInSell * reserveOutSell
	if num <= 0 {
		return 0, false
	}
	sqrtTerm := math.Sqrt(num)
	denom := feeBuy * (reserveInSell + feeSell*reserveOutBuy)
	if denom <= 0 {
		return 0, false
	}

	seed := (sqrtTerm - reserveInBuy*reserveInSell) / denom
	if seed <= 0 || math.IsNaN(seed) || math.IsInf(seed, 0) {
		return 0, false
	}
	return seed, true
}

// Bracket narrows [xMin, xMax] to a window around seed, clamped to the
// original interval, for the two-hop refinement pass.
func Bracket(seed, xMin, xMax float64) (float64, float64) {
	lo := math.Max(xMin, seed*0.5)
	hi := math.Min(xMax, seed*1.5)
	if hi <= lo {
		return xMin, xMax
	}
	return lo, hi
}
