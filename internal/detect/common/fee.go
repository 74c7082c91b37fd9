package common

import "github.com/fd1az/arbitrage-bot/internal/pricegraph"

// FeeFraction returns the fraction of input retained after a quoter's swap
// fee (e.g. 0.997 for a 0.3% fee), used by the spot-price cycle-product
// prefilters (spec.md §4.6 "rate ≈ reserveOut / reserveIn · (1−f)"). Unknown
// quoter types are treated as fee-free (conservative: overestimates rate,
// relying on the optimizer's exact simulation downstream to reject false
// positives).
func FeeFraction(q pricegraph.Quoter) float64 {
	switch v := q.(type) {
	case *pricegraph.V2Quoter:
		return float64(v.Fee) / 10000
	case *pricegraph.V3Quoter:
		return 1 - float64(v.Fee)/1_000_000
	default:
		return 1
	}
}
