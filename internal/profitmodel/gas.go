package profitmodel

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// L2FeeEstimator computes a rollup's L1 data-posting fee for a transaction
// of the given calldata size, in wei. Supplied by the chain collaborator;
// the profit model treats it as opaque (spec.md §4.11).
type L2FeeEstimator func(txSizeBytes int) (*big.Int, error)

// GasEstimate is the chain-specific gas input to the profit model.
type GasEstimate struct {
	GasUnits      uint64
	GasPriceWei   *big.Int
	IsL2          bool
	TxSizeBytes   int
	L2FeeEstimate L2FeeEstimator // only consulted when IsL2
}

// weiToDecimal converts a wei amount to a whole-token decimal (÷1e18).
func weiToDecimal(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}

// totalGasWei returns the L1 execution cost plus, for L2 chains, the
// separate L1 data fee (spec.md §4.11 "add the L1 component via the chain's
// gas-info precompile").
func totalGasWei(g GasEstimate) (*big.Int, error) {
	l1Cost := new(big.Int).Mul(g.GasPriceWei, new(big.Int).SetUint64(g.GasUnits))
	if !g.IsL2 || g.L2FeeEstimate == nil {
		return l1Cost, nil
	}
	dataFee, err := g.L2FeeEstimate(g.TxSizeBytes)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Add(l1Cost, dataFee), nil
}

// GasCostUSD converts a GasEstimate to USD using the chain's native-token
// price (spec.md §4.11).
func GasCostUSD(g GasEstimate, nativeTokenUSD decimal.Decimal) (decimal.Decimal, error) {
	wei, err := totalGasWei(g)
	if err != nil {
		return decimal.Zero, err
	}
	return weiToDecimal(wei).Mul(nativeTokenUSD), nil
}
