// Package triangular implements the C6 detector: three-hop cycles
// Base->A->B->Base, both within a single DEX and across DEXes
// (spec.md §4.6).
package triangular

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/optimize"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

// Detector finds three-hop cycles (spec.md §4.6).
type Detector struct{}

func New() *Detector { return &Detector{} }

var _ detect.Detector = (*Detector)(nil)

func (d *Detector) Detect(ctx context.Context, g *pricegraph.Graph, cfg detect.DetectConfig) []detect.Opportunity {
	filter := detect.EdgeFilter(cfg.LiquidityFloors.Triangular, detect.DefaultTriangularLiquidityUSD)
	var out []detect.Opportunity

	for _, base := range cfg.BaseTokens {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		out = append(out, singleDEXCycles(base, g, cfg, filter)...)
		out = append(out, crossDEXCycles(base, g, cfg, filter)...)
	}

	sortByTieBreak(out)
	return out
}

// singleDEXCycles enumerates cycles where all three hops land on the same
// DEX (spec.md §4.6 "Single-DEX mode").
func singleDEXCycles(base common.Address, g *pricegraph.Graph, cfg detect.DetectConfig, filter pricegraph.Filter) []detect.Opportunity {
	var out []detect.Opportunity
	dexNames := dexNamesFrom(g, base, filter)

	for _, dex := range dexNames {
		dexFilter := func(e *pricegraph.Edge) bool { return filter(e) && e.DEXName == dex }
		for _, a := range g.Neighbors(base, dexFilter) {
			for _, b := range g.Neighbors(a.Neighbor, dexFilter) {
				if b.Neighbor == base {
					continue
				}
				backEdges := g.Edges(b.Neighbor, base, dexFilter)
				if len(backEdges) == 0 {
					continue
				}
				opp, ok := tryCycle(base, a.Neighbor, b.Neighbor,
					pickEdge(a.Edges, dex), pickEdge(b.Edges, dex), backEdges[0],
					detect.VariantTriangularSingleDEX, cfg)
				if ok {
					out = append(out, opp)
				}
			}
		}
	}
	return out
}

// crossDEXCycles enumerates cycles choosing the best DEX independently per
// hop, discarding the degenerate all-same-DEX case already covered above
// (spec.md §4.6 "Cross-DEX mode").
func crossDEXCycles(base common.Address, g *pricegraph.Graph, cfg detect.DetectConfig, filter pricegraph.Filter) []detect.Opportunity {
	var out []detect.Opportunity

	for _, a := range g.Neighbors(base, filter) {
		bestAB := bestRate(a.Edges)
		if bestAB == nil {
			continue
		}
		for _, b := range g.Neighbors(a.Neighbor, filter) {
			if b.Neighbor == base {
				continue
			}
			bestBC := bestRate(b.Edges)
			if bestBC == nil {
				continue
			}
			backEdges := g.Edges(b.Neighbor, base, filter)
			bestCA := bestRate(backEdges)
			if bestCA == nil {
				continue
			}
			if bestAB.DEXName == bestBC.DEXName && bestBC.DEXName == bestCA.DEXName {
				continue // single-DEX mode already covers this
			}
			opp, ok := tryCycle(base, a.Neighbor, b.Neighbor, bestAB, bestBC, bestCA,
				detect.VariantTriangularCrossDEX, cfg)
			if ok {
				out = append(out, opp)
			}
		}
	}
	return out
}

// tryCycle prefilters a candidate three-hop cycle by its fee-adjusted
// spot-price product, then refines survivors with the golden-section
// optimizer (spec.md §4.6).
func tryCycle(base, a, b common.Address, e1, e2, e3 *pricegraph.Edge, variant detect.Variant, cfg detect.DetectConfig) (detect.Opportunity, bool) {
	if e1 == nil || e2 == nil || e3 == nil {
		return detect.Opportunity{}, false
	}

	product := spotRate(e1) * spotRate(e2) * spotRate(e3)
	minProfitRatio := 1 + cfg.MinProfitPercent/100
	if product <= minProfitRatio {
		return detect.Opportunity{}, false
	}

	xMax := detect.BoundInput(cfg, base, e1.Quoter.MaxInputBound())
	if xMax <= 0 {
		return detect.Opportunity{}, false
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
		out1 := e1.Quoter.AmountOut(aIn)
		if out1.IsZero() {
			return 0
		}
		out2 := e2.Quoter.AmountOut(out1)
		if out2.IsZero() {
			return 0
		}
		out3 := e3.Quoter.AmountOut(out2)
		if out3.Cmp(aIn) <= 0 {
			return -1
		}
		profit := detect.ToFloat64(new(uint256.Int).Sub(out3, aIn))
		return profit - detect.FlashLoanFee(cfg, x)
	}

	smallest := smallestReserveIn(e1, e2, e3)
	result := optimize.MultiHop(objective, xMin, xMax, smallest)
	if result.X <= 0 || result.Profit <= 0 {
		return detect.Opportunity{}, false
	}

	inputAmt := detect.FromFloat64(result.X)
	out1 := e1.Quoter.AmountOut(inputAmt)
	out2 := e2.Quoter.AmountOut(out1)
	out3 := e3.Quoter.AmountOut(out2)
	grossProfit := new(uint256.Int)
	if out3.Cmp(inputAmt) > 0 {
		grossProfit.Sub(out3, inputAmt)
	}
	estimated := e1.Quoter.Estimated() || e2.Quoter.Estimated() || e3.Quoter.Estimated()
	grossProfit = detect.DiscountEstimated(cfg, estimated, grossProfit)

	minLiq := e1.LiquidityUSD
	if e2.LiquidityUSD < minLiq {
		minLiq = e2.LiquidityUSD
	}
	if e3.LiquidityUSD < minLiq {
		minLiq = e3.LiquidityUSD
	}

	return detect.Opportunity{
		Variant:         variant,
		Path:            []common.Address{base, a, b, base},
		DEXes:           []string{e1.DEXName, e2.DEXName, e3.DEXName},
		InputAmount:     inputAmt,
		ExpectedOutput:  out3,
		GrossProfit:     grossProfit,
		Estimated:       estimated,
		MinLiquidityUSD: minLiq,
		BlockNumber:     cfg.BlockNumber,
		Timestamp:       cfg.Now,
	}, true
}

// spotRate returns a hop's fee-adjusted spot rate, token-out per token-in,
// as a float64 (spec.md §4.6: "rate ≈ reserveOut / reserveIn · (1−f)").
func spotRate(e *pricegraph.Edge) float64 {
	return detect.ToFloat64(e.Quoter.SpotPriceScaled()) / 1e18 * detect.FeeFraction(e.Quoter)
}

// bestRate picks the edge with the highest fee-adjusted spot rate among a
// neighbor's candidate DEX edges (spec.md §4.6 "choose the best DEX per hop
// by effective rate including fee").
func bestRate(edges []*pricegraph.Edge) *pricegraph.Edge {
	var best *pricegraph.Edge
	var bestRateVal float64
	for _, e := range edges {
		r := spotRate(e)
		if best == nil || r > bestRateVal {
			best, bestRateVal = e, r
		}
	}
	return best
}

// pickEdge returns the edge quoting on dex, or nil.
func pickEdge(edges []*pricegraph.Edge, dex string) *pricegraph.Edge {
	for _, e := range edges {
		if e.DEXName == dex {
			return e
		}
	}
	return nil
}

// dexNamesFrom collects the distinct DEX names quoting any out-edge of
// base, as the universe single-DEX mode iterates over.
func dexNamesFrom(g *pricegraph.Graph, base common.Address, filter pricegraph.Filter) []string {
	seen := make(map[string]bool)
	var names []string
	for _, nb := range g.Neighbors(base, filter) {
		for _, e := range nb.Edges {
			if !seen[e.DEXName] {
				seen[e.DEXName] = true
				names = append(names, e.DEXName)
			}
		}
	}
	return names
}

func smallestReserveIn(edges ...*pricegraph.Edge) float64 {
	smallest := 0.0
	for _, e := range edges {
		if v2, ok := e.Quoter.(*pricegraph.V2Quoter); ok {
			r := detect.ToFloat64(v2.ReserveIn)
			if smallest == 0 || r < smallest {
				smallest = r
			}
		}
	}
	return smallest
}

// sortByTieBreak orders results by net profit percent descending, then
// minimum liquidity descending, then lexicographic path (spec.md §4.6
// "Tie-breaks").
func sortByTieBreak(opps []detect.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		pi := profitRatio(opps[i])
		pj := profitRatio(opps[j])
		if pi != pj {
			return pi > pj
		}
		if opps[i].MinLiquidityUSD != opps[j].MinLiquidityUSD {
			return opps[i].MinLiquidityUSD > opps[j].MinLiquidityUSD
		}
		return pathLess(opps[i].Path, opps[j].Path)
	})
}

func profitRatio(o detect.Opportunity) float64 {
	if o.InputAmount == nil || o.InputAmount.IsZero() || o.GrossProfit == nil {
		return 0
	}
	return detect.ToFloat64(o.GrossProfit) / detect.ToFloat64(o.InputAmount)
}

func pathLess(a, b []common.Address) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i].Cmp(b[i]) < 0
		}
	}
	return len(a) < len(b)
}
