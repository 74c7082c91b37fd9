package common

import "github.com/fd1az/arbitrage-bot/internal/pricegraph"

// Default per-detector liquidity floors used when a chain leaves the
// corresponding DetectConfig.LiquidityFloors field at zero (spec.md §4.2:
// "the threshold differs by detector; triangular typically $2-10k;
// multi-hop $100-1k; stablecoin higher").
const (
	DefaultCrossDEXLiquidityUSD   = 1_000.0
	DefaultTriangularLiquidityUSD = 5_000.0
	DefaultMultiHopLiquidityUSD   = 500.0
	DefaultFeeTierLiquidityUSD    = 1_000.0
	DefaultStableLiquidityUSD     = 20_000.0
	DefaultLSDLiquidityUSD        = 1_000.0
)

// EdgeFilter builds the liquidity-floor Filter a detector applies before
// walking the graph, falling back to defaultUSD when floorUSD is unset.
func EdgeFilter(floorUSD, defaultUSD float64) pricegraph.Filter {
	if floorUSD <= 0 {
		floorUSD = defaultUSD
	}
	if floorUSD > 0 {
		return pricegraph.MinLiquidityUSD(floorUSD)
	}
	return pricegraph.AlwaysAdmit
}
