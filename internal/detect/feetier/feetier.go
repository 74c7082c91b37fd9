// Package feetier implements the C8 detector: spreads between a pair's best
// v2 price and its best v3 price across fee tiers, plus intra-v3 spreads
// across fee tiers of the same pool (spec.md §4.8).
package feetier

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/optimize"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

// defaultMinSpreadPercent is the configured minimum spread (spec.md §4.8:
// "default 0.15%"), used when the chain config leaves MinProfitPercent at 0.
const defaultMinSpreadPercent = 0.15

// Detector finds v2/v3 and intra-v3 fee-tier spreads (spec.md §4.8).
type Detector struct{}

func New() *Detector { return &Detector{} }

var _ detect.Detector = (*Detector)(nil)

func (d *Detector) Detect(ctx context.Context, g *pricegraph.Graph, cfg detect.DetectConfig) []detect.Opportunity {
	var out []detect.Opportunity
	filter := detect.EdgeFilter(cfg.LiquidityFloors.FeeTier, detect.DefaultFeeTierLiquidityUSD)
	minSpread := cfg.MinProfitPercent
	if minSpread <= 0 {
		minSpread = defaultMinSpreadPercent
	}

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
			if !hasV3(edgesAB) && !hasV3(edgesBA) {
				continue // pure v2-v2 spreads are crossdex's job
			}

			out = append(out, bestEligibleRoundTrip(a, b, edgesAB, edgesBA, cfg, minSpread)...)
			out = append(out, bestEligibleRoundTrip(b, a, edgesBA, edgesAB, cfg, minSpread)...)
		}
	}
	return out
}

func orderedKey(a, b common.Address) [2]common.Address {
	if a.Cmp(b) <= 0 {
		return [2]common.Address{a, b}
	}
	return [2]common.Address{b, a}
}

func hasV3(edges []*pricegraph.Edge) bool {
	for _, e := range edges {
		if _, ok := e.Quoter.(*pricegraph.V3Quoter); ok {
			return true
		}
	}
	return false
}

// bestEligibleRoundTrip considers every (buy, sell) combination where at
// least one side is v3 (v2-vs-v3, or two different v3 fee tiers), sizes it
// with the optimizer, and returns one opportunity per eligible combo that
// clears minSpread.
func bestEligibleRoundTrip(base, quote common.Address, outEdges, backEdges []*pricegraph.Edge, cfg detect.DetectConfig, minSpread float64) []detect.Opportunity {
	var out []detect.Opportunity

	for _, buy := range outEdges {
		for _, sell := range backEdges {
			if buy.DEXName == sell.DEXName {
				continue
			}
			_, buyIsV3 := buy.Quoter.(*pricegraph.V3Quoter)
			_, sellIsV3 := sell.Quoter.(*pricegraph.V3Quoter)
			if !buyIsV3 && !sellIsV3 {
				continue // pure v2-v2: crossdex's job
			}

			xMax := detect.BoundInput(cfg, base, buy.Quoter.MaxInputBound())
			if xMax <= 0 {
				continue
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
					return -1
				}
				profit := detect.ToFloat64(new(uint256.Int).Sub(back, aIn))
				return profit - detect.FlashLoanFee(cfg, x)
			}

			result := optimize.GoldenSectionSearch(objective, xMin, xMax, optimize.DefaultIterations)
			if result.X <= 0 || result.Profit <= 0 {
				continue
			}

			inputAmt := detect.FromFloat64(result.X)
			mid := buy.Quoter.AmountOut(inputAmt)
			outAmt := sell.Quoter.AmountOut(mid)
			estimated := buy.Quoter.Estimated() || sell.Quoter.Estimated()
			if outAmt.Cmp(inputAmt) <= 0 {
				continue
			}
			grossProfit := new(uint256.Int).Sub(outAmt, inputAmt)
			spreadPercent := detect.ToFloat64(grossProfit) / detect.ToFloat64(inputAmt) * 100
			if spreadPercent < minSpread {
				continue
			}
			grossProfit = detect.DiscountEstimated(cfg, estimated, grossProfit)

			minLiq := buy.LiquidityUSD
			if sell.LiquidityUSD < minLiq {
				minLiq = sell.LiquidityUSD
			}

			out = append(out, detect.Opportunity{
				Variant:         detect.VariantV2V3,
				Path:            []common.Address{base, quote, base},
				DEXes:           []string{buy.DEXName, sell.DEXName},
				InputAmount:     inputAmt,
				ExpectedOutput:  outAmt,
				GrossProfit:     grossProfit,
				MinLiquidityUSD: minLiq,
				Estimated:       estimated,
				BlockNumber:     cfg.BlockNumber,
				Timestamp:       cfg.Now,
			})
		}
	}
	return out
}
