package profitmodel_test

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-bot/internal/profitmodel"
)

func TestEvaluate_ProfitableAfterAllCosts(t *testing.T) {
	in := profitmodel.Input{
		GrossProfitBaseToken: decimal.RequireFromString("0.05"), // 0.05 ETH
		BaseTokenUSD:          decimal.RequireFromString("3400"),
		TradeValueUSD:         decimal.RequireFromString("10000"),
		Gas: profitmodel.GasEstimate{
			GasUnits:    200_000,
			GasPriceWei: big.NewInt(25_000_000_000), // 25 gwei
		},
		NativeTokenUSD: decimal.RequireFromString("3400"),
		Tier:           profitmodel.TierBlueChip,
		HopCount:       2,
		UsesFlashLoan:  true,
		FlashLoan:      profitmodel.DefaultFlashLoanPolicy(),
	}

	result, err := profitmodel.Evaluate(in)
	require.NoError(t, err)

	assert.True(t, result.GrossUSD.Equal(decimal.RequireFromString("170")))
	assert.True(t, result.FlashFeeUSD.Equal(decimal.RequireFromString("25"))) // 10000 * 0.25%
	assert.True(t, result.SlippageUSD.Equal(decimal.RequireFromString("50"))) // 10000 * 0.5%
	assert.True(t, result.IsProfitable, "gross $170 minus ~$17 gas, $25 flash fee, $50 slippage should stay positive")
}

func TestEvaluate_UnprofitableWhenCostsExceedGross(t *testing.T) {
	in := profitmodel.Input{
		GrossProfitBaseToken: decimal.RequireFromString("0.001"),
		BaseTokenUSD:          decimal.RequireFromString("3400"),
		TradeValueUSD:         decimal.RequireFromString("10000"),
		Gas: profitmodel.GasEstimate{
			GasUnits:    200_000,
			GasPriceWei: big.NewInt(100_000_000_000), // 100 gwei
		},
		NativeTokenUSD: decimal.RequireFromString("3400"),
		Tier:           profitmodel.TierVolatile,
		HopCount:       2,
	}

	result, err := profitmodel.Evaluate(in)
	require.NoError(t, err)
	assert.False(t, result.IsProfitable)
	assert.True(t, result.NetUSD.IsNegative())
}

func TestGasCostUSD_L2AddsDataFee(t *testing.T) {
	g := profitmodel.GasEstimate{
		GasUnits:    100_000,
		GasPriceWei: big.NewInt(1_000_000), // cheap L2 execution gas
		IsL2:        true,
		TxSizeBytes: 500,
		L2FeeEstimate: func(txSizeBytes int) (*big.Int, error) {
			return big.NewInt(int64(txSizeBytes) * 1_000_000_000), nil
		},
	}
	usd, err := profitmodel.GasCostUSD(g, decimal.RequireFromString("3000"))
	require.NoError(t, err)
	assert.True(t, usd.IsPositive())
}

func TestSlippageRate_MultiHopAddsBumpAndClamps(t *testing.T) {
	twoHop := profitmodel.SlippageRate(profitmodel.TierMeme, 2)
	threeHop := profitmodel.SlippageRate(profitmodel.TierMeme, 3)
	assert.True(t, threeHop.GreaterThan(twoHop), "a 3-hop path must carry a higher allowance than 2-hop at the same tier")

	clamped := profitmodel.SlippageRate(profitmodel.TierMeme, 20)
	assert.True(t, clamped.LessThanOrEqual(decimal.RequireFromString("0.03")))
}

func TestSlippageRate_StableStableIsCheapest(t *testing.T) {
	stable := profitmodel.SlippageRate(profitmodel.TierStableStable, 2)
	volatile := profitmodel.SlippageRate(profitmodel.TierVolatile, 2)
	assert.True(t, stable.LessThan(volatile))
}
