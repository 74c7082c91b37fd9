// Package crossdex implements the C5 detector: two-DEX round-trip arbitrage
// on a single token pair (spec.md §4.5).
package crossdex

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fd1az/arbitrage-bot/internal/ammmath"
	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/optimize"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

// Detector finds two-DEX round trips: buy token B with token A on one DEX,
// sell B back to A on another.
type Detector struct{}

func New() *Detector { return &Detector{} }

var _ detect.Detector = (*Detector)(nil)

func (d *Detector) Detect(ctx context.Context, g *pricegraph.Graph, cfg detect.DetectConfig) []detect.Opportunity {
	var out []detect.Opportunity
	filter := detect.EdgeFilter(cfg.LiquidityFloors.CrossDEX, detect.DefaultCrossDEXLiquidityUSD)

	seen := make(map[[2]common.Address]bool)
	for _, a := range g.Tokens() {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		for _, nb := range g.Neighbors(a, filter) {
			b := nb.Neighbor
			key := orderedKey(a, b)
			if seen[key] {
				continue
			}
			seen[key] = true

			edgesAB := g.Edges(a, b, filter)
			edgesBA := g.Edges(b, a, filter)
			if len(edgesAB) == 0 || len(edgesBA) == 0 {
				continue
			}

			if opp, ok := bestRoundTrip(a, b, edgesAB, edgesBA, cfg); ok {
				out = append(out, opp)
			}
			if opp, ok := bestRoundTrip(b, a, edgesBA, edgesAB, cfg); ok {
				out = append(out, opp)
			}
		}
	}
	return out
}

// orderedKey returns a canonical key for an unordered token pair so each
// pair is only visited once per outer loop.
func orderedKey(a, b common.Address) [2]common.Address {
	if a.Cmp(b) <= 0 {
		return [2]common.Address{a, b}
	}
	return [2]common.Address{b, a}
}

// bestRoundTrip tries every (buy-DEX, sell-DEX) combination for the cycle
// base -> quote -> base and returns the most profitable, per spec.md §4.5.
func bestRoundTrip(base, quote common.Address, outEdges, backEdges []*pricegraph.Edge, cfg detect.DetectConfig) (detect.Opportunity, bool) {
	var best detect.Opportunity
	var bestProfit float64
	found := false

	for _, buy := range outEdges {
		for _, sell := range backEdges {
			if buy.DEXName == sell.DEXName {
				continue // a round trip needs two distinct venues
			}
			result, xMax := simulate(buy, sell, base, cfg)
			if result.X <= 0 || result.Profit <= 0 {
				continue
			}
			if result.Profit <= bestProfit {
				continue
			}

			inputAmt := detect.FromFloat64(result.X)
			outAmt := quote1(buy, sell, inputAmt)
			estimated := buy.Quoter.Estimated() || sell.Quoter.Estimated()
			grossProfit := new(uint256.Int)
			if outAmt.Cmp(inputAmt) > 0 {
				grossProfit.Sub(outAmt, inputAmt)
			}
			grossProfit = detect.DiscountEstimated(cfg, estimated, grossProfit)

			minLiq := buy.LiquidityUSD
			if sell.LiquidityUSD < minLiq {
				minLiq = sell.LiquidityUSD
			}

			best = detect.Opportunity{
				Variant:         detect.VariantTwoDEX,
				Path:            []common.Address{base, quote, base},
				DEXes:           []string{buy.DEXName, sell.DEXName},
				InputAmount:     inputAmt,
				ExpectedOutput:  outAmt,
				GrossProfit:     grossProfit,
				MinLiquidityUSD: minLiq,
				Estimated:       estimated,
				BlockNumber:     cfg.BlockNumber,
				Timestamp:       cfg.Now,
			}
			bestProfit = result.Profit
			found = true
			_ = xMax
		}
	}
	return best, found
}

// simulate runs the golden-section optimizer over the round trip
// base -[buy]-> quote -[sell]-> base, returning the best input/profit found
// in float64 base-token units.
func simulate(buy, sell *pricegraph.Edge, base common.Address, cfg detect.DetectConfig) (optimize.Result, float64) {
	xMax := detect.BoundInput(cfg, base, buy.Quoter.MaxInputBound())
	if xMax <= 0 {
		return optimize.Result{}, 0
	}
	xMin := xMax * 1e-6
	if xMin <= 0 {
		xMin = 1
	}

	objective := func(x float64) float64 {
		aIn := detect.FromFloat64(x)
		if aIn.IsZero() {
			return 0
		}
		mid := buy.Quoter.AmountOut(aIn)
		if mid.IsZero() {
			return 0
		}
		back := sell.Quoter.AmountOut(mid)
		if back.Cmp(aIn) <= 0 {
			return -1 // loss; golden-section only needs relative ordering
		}
		profit := detect.ToFloat64(new(uint256.Int).Sub(back, aIn))
		return profit - detect.FlashLoanFee(cfg, x)
	}

	v2buy, buyIsV2 := buy.Quoter.(*pricegraph.V2Quoter)
	v2sell, sellIsV2 := sell.Quoter.(*pricegraph.V2Quoter)
	if buyIsV2 && sellIsV2 {
		feeBuy := feeFraction(v2buy.Fee)
		feeSell := feeFraction(v2sell.Fee)
		result := optimize.TwoHop(objective, xMin, xMax,
			detect.ToFloat64(v2buy.ReserveIn), detect.ToFloat64(v2buy.ReserveOut),
			detect.ToFloat64(v2sell.ReserveIn), detect.ToFloat64(v2sell.ReserveOut),
			feeBuy, feeSell)
		return result, xMax
	}

	result := optimize.GoldenSectionSearch(objective, xMin, xMax, optimize.DefaultIterations)
	return result, xMax
}

// feeFraction converts a v2 fee numerator back into the fraction retained
// after fees (e.g. 0.997 for a 0.3% fee), for the optimizer's seed formula.
func feeFraction(f ammmath.FeeNumerator) float64 {
	return float64(f) / 10000
}

// quote1 re-runs the round trip at an already-chosen input to get the exact
// on-chain output (the optimizer itself only needs relative profit).
func quote1(buy, sell *pricegraph.Edge, aIn *uint256.Int) *uint256.Int {
	mid := buy.Quoter.AmountOut(aIn)
	return sell.Quoter.AmountOut(mid)
}
