package common

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BoundInput intersects a quoter-derived hard cap with the chain's
// configured max-trade-USD limit converted to units of token, when a price
// reference is available, returning the tighter of the two in float64
// base-token units for the optimizer (spec.md §3 invariant: "bounded by
// min(chain-configured max trade USD, liquidity-proportional cap)").
func BoundInput(cfg DetectConfig, token common.Address, quoterMax *uint256.Int) float64 {
	xMax := ToFloat64(quoterMax)
	if cfg.MaxInputAmount == nil {
		return xMax
	}
	capAmt := cfg.MaxInputAmount(token)
	if capAmt == nil {
		return xMax
	}
	if capF := ToFloat64(capAmt); capF > 0 && capF < xMax {
		return capF
	}
	return xMax
}

// FlashLoanFee returns the cost of borrowing x units of input token via
// flash loan, or 0 when none is available, for an optimizer objective to
// subtract from its output before computing profit (spec.md §4.5/§4.10 step
// 3: "subtracting (x . fee) from the output").
func FlashLoanFee(cfg DetectConfig, x float64) float64 {
	if !cfg.FlashLoanAvailable {
		return 0
	}
	feeRate, _ := cfg.FlashLoanFeeRate.Float64()
	if feeRate <= 0 {
		return 0
	}
	return x * feeRate
}
