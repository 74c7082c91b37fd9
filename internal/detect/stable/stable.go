// Package stable implements the stablecoin-depeg half of C9: fast,
// spot-price-only screening for stablecoins trading outside their peg, and
// for spreads between stablecoins or DEXes quoting the same stablecoin
// (spec.md §4.9 "Stablecoin depeg").
package stable

import (
	"context"
	"math"

	"github.com/ethereum/go-ethereum/common"

	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

const (
	// defaultDepegEpsilonPercent is ε (spec.md §4.9: "default 0.2%").
	defaultDepegEpsilonPercent = 0.2
	// defaultSpreadMinPercent is the minimum stablecoin-stablecoin or
	// cross-DEX spread that counts as an opportunity (spec.md §4.9: "0.3%").
	defaultSpreadMinPercent = 0.3
	// severeDepegPercent triggers the severe-depeg tag (spec.md §4.9: "≥1%").
	severeDepegPercent = 1.0
)

// Detector screens a configured set of stablecoins for peg deviation and
// cross-venue spreads. Unlike the full optimizer-backed detectors, this
// pass is spot-price only: it exists to flag fast, cheap signals and to
// attach depeg semantics that crossdex's generic round-trip search has no
// way to know about (spec.md §4.9).
type Detector struct {
	// Stables is the chain's configured stablecoin set, each assumed
	// pegged to $1; DEX rates against any other member are read as a USD
	// price estimate for the first member.
	Stables []common.Address
}

func New(stables []common.Address) *Detector {
	return &Detector{Stables: stables}
}

var _ detect.Detector = (*Detector)(nil)

func (d *Detector) Detect(ctx context.Context, g *pricegraph.Graph, cfg detect.DetectConfig) []detect.Opportunity {
	var out []detect.Opportunity
	filter := detect.EdgeFilter(cfg.LiquidityFloors.Stable, detect.DefaultStableLiquidityUSD)

	eps := cfg.MinProfitPercent // depeg epsilon isn't separately configurable on DetectConfig; reuse the chain's percent knob, defaulting below
	if eps <= 0 {
		eps = defaultDepegEpsilonPercent
	}
	minSpread := defaultSpreadMinPercent

	for i, s1 := range d.Stables {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		for j, s2 := range d.Stables {
			if i == j {
				continue
			}
			edges := g.Edges(s1, s2, filter)
			if len(edges) == 0 {
				continue
			}

			for _, e := range edges {
				price := spot(e)
				deviation := math.Abs(price-1.0) * 100
				if deviation >= eps {
					out = append(out, depegOpportunity(s1, s2, e, deviation, cfg))
				}
			}

			if len(edges) >= 2 {
				if opp, ok := crossVenueSpread(s1, s2, edges, minSpread, cfg); ok {
					out = append(out, opp)
				}
			}
		}
	}
	return out
}

func spot(e *pricegraph.Edge) float64 {
	return detect.ToFloat64(e.Quoter.SpotPriceScaled()) / 1e18
}

func depegOpportunity(s1, s2 common.Address, e *pricegraph.Edge, deviationPercent float64, cfg detect.DetectConfig) detect.Opportunity {
	return detect.Opportunity{
		Variant:         detect.VariantStable,
		Path:            []common.Address{s1, s2},
		DEXes:           []string{e.DEXName},
		MinLiquidityUSD: e.LiquidityUSD,
		BlockNumber:     cfg.BlockNumber,
		Timestamp:       cfg.Now,
		Extra: map[string]any{
			"kind":              "depeg",
			"deviation_percent": deviationPercent,
			"severe":            deviationPercent >= severeDepegPercent,
		},
	}
}

// crossVenueSpread compares every DEX quoting s1->s2 and flags the gap
// between the best and worst rate, if it clears the minimum spread
// (spec.md §4.9 "spreads above 0.3% ... between two DEXes for the same
// stablecoin").
func crossVenueSpread(s1, s2 common.Address, edges []*pricegraph.Edge, minSpread float64, cfg detect.DetectConfig) (detect.Opportunity, bool) {
	best, worst := edges[0], edges[0]
	bestRate, worstRate := spot(edges[0]), spot(edges[0])
	for _, e := range edges[1:] {
		r := spot(e)
		if r > bestRate {
			best, bestRate = e, r
		}
		if r < worstRate {
			worst, worstRate = e, r
		}
	}
	if worstRate <= 0 {
		return detect.Opportunity{}, false
	}
	spreadPercent := (bestRate - worstRate) / worstRate * 100
	if spreadPercent < minSpread {
		return detect.Opportunity{}, false
	}

	minLiq := best.LiquidityUSD
	if worst.LiquidityUSD < minLiq {
		minLiq = worst.LiquidityUSD
	}

	return detect.Opportunity{
		Variant:         detect.VariantStable,
		Path:            []common.Address{s1, s2},
		DEXes:           []string{worst.DEXName, best.DEXName},
		MinLiquidityUSD: minLiq,
		BlockNumber:     cfg.BlockNumber,
		Timestamp:       cfg.Now,
		Extra: map[string]any{
			"kind":            "cross_venue_spread",
			"spread_percent":  spreadPercent,
		},
	}, true
}
