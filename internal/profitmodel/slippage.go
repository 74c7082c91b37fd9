package profitmodel

import "github.com/shopspring/decimal"

// Tier classifies a token pair's liquidity/volatility profile for slippage
// allowance purposes (spec.md §4.11).
type Tier string

const (
	TierStableStable Tier = "stable_stable"
	TierNative       Tier = "native"
	TierBlueChip     Tier = "blue_chip"
	TierVolatile     Tier = "volatile"
	TierMeme         Tier = "meme"
)

var baseSlippageRate = map[Tier]decimal.Decimal{
	TierStableStable: decimal.NewFromFloat(0.001),
	TierNative:        decimal.NewFromFloat(0.003),
	TierBlueChip:      decimal.NewFromFloat(0.005),
	TierVolatile:      decimal.NewFromFloat(0.01),
	TierMeme:          decimal.NewFromFloat(0.015),
}

var (
	minSlippageRate = decimal.NewFromFloat(0.0005)
	maxSlippageRate = decimal.NewFromFloat(0.03)
	perExtraHopBump = decimal.NewFromFloat(0.10)
)

// SlippageRate returns the allowance rate for a tier and hop count. Paths
// longer than two hops add 10% per extra hop on top of the tier's base rate,
// clamped to [0.05%, 3%] (spec.md §4.11).
func SlippageRate(tier Tier, hopCount int) decimal.Decimal {
	rate, ok := baseSlippageRate[tier]
	if !ok {
		rate = baseSlippageRate[TierVolatile]
	}

	extraHops := hopCount - 2
	if extraHops > 0 {
		bump := decimal.NewFromInt(int64(extraHops)).Mul(perExtraHopBump)
		rate = rate.Mul(decimal.NewFromInt(1).Add(bump))
	}

	if rate.LessThan(minSlippageRate) {
		return minSlippageRate
	}
	if rate.GreaterThan(maxSlippageRate) {
		return maxSlippageRate
	}
	return rate
}
