// Package profitmodel converts a raw arbitrage simulation result into a
// USD-denominated net profit, folding in gas, flash-loan fees and a
// per-pair slippage allowance (spec.md §4.11). It never hardcodes a token
// price: every USD conversion takes a freshly observed reference rate.
package profitmodel

import "github.com/shopspring/decimal"

// FlashLoanPolicy describes the fee charged by the chain-configured
// flash-loan provider, if the opportunity needs one to fund its input
// amount. Zero-fee providers (Balancer-style) set FeeRate to zero but
// remain Available.
type FlashLoanPolicy struct {
	Available bool
	FeeRate   decimal.Decimal // e.g. 0.0025 for 0.25%
}

// DefaultFlashLoanPolicy returns the spec's default Aave-style policy.
func DefaultFlashLoanPolicy() FlashLoanPolicy {
	return FlashLoanPolicy{Available: true, FeeRate: decimal.NewFromFloat(0.0025)}
}

// Input is everything the model needs to price one opportunity.
type Input struct {
	GrossProfitBaseToken decimal.Decimal // simulated profit, in base-token units
	BaseTokenUSD         decimal.Decimal // dynamic reference price for the base token
	TradeValueUSD         decimal.Decimal
	Gas                   GasEstimate
	NativeTokenUSD        decimal.Decimal
	Tier                  Tier
	HopCount              int
	UsesFlashLoan         bool
	FlashLoan             FlashLoanPolicy
}

// Result is the fully-costed USD breakdown of one opportunity.
type Result struct {
	GrossUSD      decimal.Decimal
	GasUSD        decimal.Decimal
	FlashFeeUSD   decimal.Decimal
	SlippageUSD   decimal.Decimal
	NetUSD        decimal.Decimal
	IsProfitable  bool
}

// Evaluate computes the full profit breakdown (spec.md §4.11):
// net = gross - gas - flash fee - slippage allowance.
func Evaluate(in Input) (Result, error) {
	gross := in.GrossProfitBaseToken.Mul(in.BaseTokenUSD)

	gasUSD, err := GasCostUSD(in.Gas, in.NativeTokenUSD)
	if err != nil {
		return Result{}, err
	}

	flashFeeUSD := decimal.Zero
	if in.UsesFlashLoan && in.FlashLoan.Available {
		flashFeeUSD = in.TradeValueUSD.Mul(in.FlashLoan.FeeRate)
	}

	slippageRate := SlippageRate(in.Tier, in.HopCount)
	slippageUSD := in.TradeValueUSD.Mul(slippageRate)

	netUSD := gross.Sub(gasUSD).Sub(flashFeeUSD).Sub(slippageUSD)

	return Result{
		GrossUSD:     gross,
		GasUSD:       gasUSD,
		FlashFeeUSD:  flashFeeUSD,
		SlippageUSD:  slippageUSD,
		NetUSD:       netUSD,
		IsProfitable: netUSD.IsPositive(),
	}, nil
}
