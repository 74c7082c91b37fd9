// Package lsd implements the liquid-staking-derivative half of C9:
// comparing a protocol-reported exchange rate against DEX rates, and
// flagging cross-DEX spreads on the same derivative (spec.md §4.9 "LSD").
package lsd

import (
	"context"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"

	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

// ProtocolRateProvider supplies a liquid-staking derivative's
// protocol-reported exchange rate (e.g. Lido's stEthPerToken, a vault's
// pricePerShare), per spec.md §4.9.
type ProtocolRateProvider interface {
	ProtocolRate(ctx context.Context, token common.Address) (rate float64, ok bool)
}

// Asset is one configured liquid-staking derivative: the derivative token
// and the underlying it's redeemable for, plus its daily rebase schedule
// (spec.md §4.9 "rebase window... 30 min after the daily oracle report for
// Lido").
type Asset struct {
	Token         common.Address
	Underlying    common.Address
	RebaseHourUTC int           // hour of day the protocol posts its rebase report
	RebaseWindow  time.Duration // duration after the report considered "within window"
}

// Detector compares protocol rates against DEX rates for a configured set
// of LSD assets (spec.md §4.9).
type Detector struct {
	Assets []Asset
	Rates  ProtocolRateProvider
}

func New(assets []Asset, rates ProtocolRateProvider) *Detector {
	return &Detector{Assets: assets, Rates: rates}
}

var _ detect.Detector = (*Detector)(nil)

func (d *Detector) Detect(ctx context.Context, g *pricegraph.Graph, cfg detect.DetectConfig) []detect.Opportunity {
	var out []detect.Opportunity
	filter := detect.EdgeFilter(cfg.LiquidityFloors.LSD, detect.DefaultLSDLiquidityUSD)
	minDeviation := cfg.MinProfitPercent
	if minDeviation <= 0 {
		minDeviation = 0.3
	}

	for _, asset := range d.Assets {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		if d.Rates == nil {
			continue
		}
		protocolRate, ok := d.Rates.ProtocolRate(ctx, asset.Token)
		if !ok || protocolRate <= 0 {
			continue
		}

		edges := g.Edges(asset.Token, asset.Underlying, filter)
		withinRebase := asset.withinRebaseWindow(cfg.Now)

		for _, e := range edges {
			dexRate := spot(e)
			if dexRate <= 0 {
				continue
			}
			fee := detect.FeeFraction(e.Quoter)
			dexFeePercent := (1 - fee) * 100
			deviationPercent := math.Abs(protocolRate-dexRate)/protocolRate*100 - dexFeePercent
			if deviationPercent < minDeviation {
				continue
			}
			out = append(out, protocolOpportunity(asset, e, protocolRate, dexRate, deviationPercent, withinRebase, cfg))
		}

		if opp, ok := crossDEXSpread(asset, edges, minDeviation, withinRebase, cfg); ok {
			out = append(out, opp)
		}
	}
	return out
}

func spot(e *pricegraph.Edge) float64 {
	return detect.ToFloat64(e.Quoter.SpotPriceScaled()) / 1e18
}

// withinRebaseWindow reports whether now falls within the configured
// window after the asset's daily rebase report.
func (a Asset) withinRebaseWindow(now time.Time) bool {
	if now.IsZero() || a.RebaseWindow <= 0 {
		return false
	}
	reportTime := time.Date(now.Year(), now.Month(), now.Day(), a.RebaseHourUTC, 0, 0, 0, time.UTC)
	if now.Before(reportTime) {
		reportTime = reportTime.AddDate(0, 0, -1)
	}
	return now.Sub(reportTime) <= a.RebaseWindow
}

func protocolOpportunity(asset Asset, e *pricegraph.Edge, protocolRate, dexRate, deviationPercent float64, withinRebase bool, cfg detect.DetectConfig) detect.Opportunity {
	return detect.Opportunity{
		Variant:         detect.VariantLSDProtocolDEX,
		Path:            []common.Address{asset.Token, asset.Underlying},
		DEXes:           []string{e.DEXName},
		MinLiquidityUSD: e.LiquidityUSD,
		BlockNumber:     cfg.BlockNumber,
		Timestamp:       cfg.Now,
		Extra: map[string]any{
			"protocol_rate":        protocolRate,
			"dex_rate":             dexRate,
			"deviation_percent":    deviationPercent,
			"within_rebase_window": withinRebase,
		},
	}
}

// crossDEXSpread flags the widest DEX-to-DEX rate gap on the same
// derivative (spec.md §4.9 "cross-DEX on the same LSD"). Curve-style
// stableswap pools need no special handling here: they surface as just
// another pricegraph.Edge with their own DEXName, so the generic
// best-vs-worst comparison already covers the "Curve-pool-vs-DEX" variant.
func crossDEXSpread(asset Asset, edges []*pricegraph.Edge, minDeviation float64, withinRebase bool, cfg detect.DetectConfig) (detect.Opportunity, bool) {
	if len(edges) < 2 {
		return detect.Opportunity{}, false
	}
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
	if spreadPercent < minDeviation {
		return detect.Opportunity{}, false
	}

	minLiq := best.LiquidityUSD
	if worst.LiquidityUSD < minLiq {
		minLiq = worst.LiquidityUSD
	}

	return detect.Opportunity{
		Variant:         detect.VariantLSDCrossDEX,
		Path:            []common.Address{asset.Token, asset.Underlying},
		DEXes:           []string{worst.DEXName, best.DEXName},
		MinLiquidityUSD: minLiq,
		BlockNumber:     cfg.BlockNumber,
		Timestamp:       cfg.Now,
		Extra: map[string]any{
			"spread_percent":       spreadPercent,
			"within_rebase_window": withinRebase,
		},
	}, true
}
