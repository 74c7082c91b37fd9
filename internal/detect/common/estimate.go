package common

import "github.com/holiman/uint256"

// DiscountEstimated scales grossProfit down by cfg.V3EstimatedMargin when
// estimated is true, for a v3 leg that crossed a tick range and fell back to
// the single-range approximation (spec.md §4.1: "the detector must mark the
// quote as estimated and discount expected profit by a configurable safety
// margin (default 25%)").
func DiscountEstimated(cfg DetectConfig, estimated bool, grossProfit *uint256.Int) *uint256.Int {
	if !estimated || cfg.V3EstimatedMargin <= 0 || grossProfit == nil {
		return grossProfit
	}
	if cfg.V3EstimatedMargin >= 1 {
		return uint256.NewInt(0)
	}
	return FromFloat64(ToFloat64(grossProfit) * (1 - cfg.V3EstimatedMargin))
}
