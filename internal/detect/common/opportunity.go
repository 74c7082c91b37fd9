// Package common holds the opportunity model and detector contract shared
// by every detector variant (spec.md §3, §4.5-§4.9).
package common

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-bot/internal/mevsim"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
	"github.com/fd1az/arbitrage-bot/internal/scorer"
)

// Variant tags which detector produced an opportunity (spec.md §3).
type Variant string

const (
	VariantTwoDEX               Variant = "two-dex"
	VariantTriangularSingleDEX  Variant = "triangular-single-dex"
	VariantTriangularCrossDEX   Variant = "triangular-cross-dex"
	VariantMultiHop             Variant = "multi-hop"
	VariantV2V3                 Variant = "v2v3"
	VariantStable               Variant = "stable"
	VariantLSDProtocolDEX       Variant = "lsd-protocol-dex"
	VariantLSDCrossDEX          Variant = "lsd-cross-dex"
	VariantJITArb               Variant = "jit-arb"
)

// Opportunity is the detection engine's universal output record
// (spec.md §3: "tagged record with variant..."). Fields common to every
// variant; detector-specific detail lives in Extra.
type Opportunity struct {
	Variant         Variant
	Path            []common.Address // ordered tokens
	DEXes           []string         // one per hop
	InputAmount     *uint256.Int
	ExpectedOutput  *uint256.Int
	GrossProfit     *uint256.Int // native (base-token) units
	NetProfitUSD    decimal.Decimal
	GasCostUSD      decimal.Decimal
	MinLiquidityUSD float64
	Timestamp       time.Time
	BlockNumber     uint64
	Score           float64
	Tier            scorer.Tier
	Recommendation  mevsim.Recommendation
	MEV             mevsim.Result

	// Estimated is true when at least one leg's quote crossed a v3 tick
	// range and fell back to the single-range approximation; GrossProfit has
	// already been discounted by DetectConfig.V3EstimatedMargin when set
	// (spec.md §4.1: "mark the quote as estimated and discount expected
	// profit by a configurable safety margin").
	Estimated bool

	// Extra carries variant-specific fields (e.g. depeg magnitude, LSD
	// protocol rate, JIT fee estimate) that don't generalize across variants.
	Extra map[string]any
}

// LiquidityFloorUSD holds the per-detector minimum-hop-liquidity
// admissibility thresholds (spec.md §4.2: "the threshold differs by
// detector; triangular typically $2-10k; multi-hop $100-1k; stablecoin
// higher"). A zero field falls back to that detector's own spec default.
type LiquidityFloorUSD struct {
	CrossDEX   float64
	Triangular float64
	MultiHop   float64
	FeeTier    float64
	Stable     float64
	LSD        float64
}

// DetectConfig bundles the chain-level thresholds every detector consults
// (spec.md §4.5-§4.9, §6 ChainConfig).
type DetectConfig struct {
	MinProfitPercent     float64
	MinTradeUSD          float64
	MaxTradeUSD          float64
	FlashLoanFeeRate     decimal.Decimal
	FlashLoanAvailable   bool
	MaxCycleLength       int // default 5, C7
	MaxCyclesVisited     int // default 1000, C7
	LiquidityFloors      LiquidityFloorUSD
	// MaxInputAmount converts cfg.MaxTradeUSD into a token amount for
	// token, using the chain's current USD price reference, or nil if no
	// price is available. Detectors intersect it with Quoter.MaxInputBound()
	// before sizing (spec.md §3: "bounded by min(chain-configured max trade
	// USD, liquidity-proportional cap)").
	MaxInputAmount func(token common.Address) *uint256.Int
	// V3EstimatedMargin discounts an opportunity's gross profit when any leg
	// is Opportunity.Estimated (spec.md §4.1, default 0.25).
	V3EstimatedMargin float64
	BaseTokens        []common.Address
	BlockNumber       uint64
	Now               time.Time
}

// Detector is the shared contract every detector variant implements
// (spec.md "Each gets its own sub-package implementing a shared Detector
// interface").
type Detector interface {
	Detect(ctx context.Context, g *pricegraph.Graph, cfg DetectConfig) []Opportunity
}
