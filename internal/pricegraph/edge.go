// Package pricegraph holds the token-keyed directed multigraph of DEX edges
// for a single chain (spec.md §4.2), and the DEX-family Quoter trait each
// edge's AMM math is exposed through (spec.md §9 "Polymorphism across DEX
// families").
package pricegraph

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fd1az/arbitrage-bot/internal/ammmath"
)

// Quoter is the per-family AMM interface detectors operate against, so they
// never branch on DEX family directly (spec.md §9).
type Quoter interface {
	AmountOut(aIn *uint256.Int) *uint256.Int
	SpotPriceScaled() *uint256.Int // token-out per token-in, scaled 1e18, fee-exclusive
	MaxInputBound() *uint256.Int   // hard cap: 30% of reserve-in (v2) or liquidity equivalent (v3)
	Estimated() bool               // true when the last AmountOut crossed a v3 range
}

// V2Quoter implements Quoter for constant-product pools. ReserveIn/ReserveOut
// are already oriented for this edge's direction (the reverse edge stores
// them swapped, never an inverted forward quote — spec.md §3).
type V2Quoter struct {
	ReserveIn  *uint256.Int
	ReserveOut *uint256.Int
	Fee        ammmath.FeeNumerator
}

func (q *V2Quoter) AmountOut(aIn *uint256.Int) *uint256.Int {
	return ammmath.V2AmountOut(aIn, q.ReserveIn, q.ReserveOut, q.Fee)
}

func (q *V2Quoter) SpotPriceScaled() *uint256.Int {
	return ammmath.V2SpotPriceScaled(q.ReserveIn, q.ReserveOut)
}

func (q *V2Quoter) MaxInputBound() *uint256.Int {
	cap := new(uint256.Int).Mul(q.ReserveIn, uint256.NewInt(3))
	return cap.Div(cap, uint256.NewInt(10)) // 30% of reserve-in, spec.md §4.10
}

func (q *V2Quoter) Estimated() bool { return false }

// V3Quoter implements Quoter for concentrated-liquidity pools via the
// single-range approximation (spec.md §4.1/§9).
type V3Quoter struct {
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	ZeroForOne   bool
	Fee          ammmath.FeePips

	lastEstimated bool
}

func (q *V3Quoter) AmountOut(aIn *uint256.Int) *uint256.Int {
	quote := ammmath.V3AmountOut(q.SqrtPriceX96, q.Liquidity, aIn, q.ZeroForOne, q.Fee)
	q.lastEstimated = quote.CrossesRange
	return quote.AmountOut
}

func (q *V3Quoter) SpotPriceScaled() *uint256.Int {
	price := ammmath.V3SpotPriceScaled(q.SqrtPriceX96)
	if q.ZeroForOne || price.IsZero() {
		return price
	}
	// price is token1 per token0, which already matches the token0->token1
	// direction; the token1->token0 edge quotes the reciprocal, 1e36/price,
	// so the result stays scaled by 1e18.
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(36))
	return scale.Div(scale, price)
}

func (q *V3Quoter) MaxInputBound() *uint256.Int {
	// Liquidity-equivalent cap: L itself bounds how much input can be
	// absorbed in-range; used as a conservative proxy for reserve-in.
	return q.Liquidity.Clone()
}

func (q *V3Quoter) Estimated() bool { return q.lastEstimated }

// Edge is one directed DEX quote between two tokens (spec.md §3).
type Edge struct {
	From, To    common.Address
	DEXName     string
	Quoter      Quoter
	BlockNumber uint64
	// LiquidityUSD is a derived, non-authoritative field (spec.md §3) set by
	// the price source (C4) at upsert time from whatever USD reference it has.
	LiquidityUSD float64
}
