package feetier_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-bot/internal/ammmath"
	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/detect/feetier"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

var (
	tokenA = common.HexToAddress("0x3000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x3000000000000000000000000000000000000002")
	q96    = new(uint256.Int).Lsh(uint256.NewInt(1), 96) // price = 1.0
)

func v2Edge(from, to common.Address, dex string, reserveIn, reserveOut uint64) *pricegraph.Edge {
	return &pricegraph.Edge{
		From:    from,
		To:      to,
		DEXName: dex,
		Quoter: &pricegraph.V2Quoter{
			ReserveIn:  uint256.NewInt(reserveIn),
			ReserveOut: uint256.NewInt(reserveOut),
			Fee:        ammmath.NewFeeNumerator(0.003),
		},
		BlockNumber:  400,
		LiquidityUSD: 500_000,
	}
}

func v3Edge(from, to common.Address, dex string, zeroForOne bool, liquidity uint64) *pricegraph.Edge {
	return &pricegraph.Edge{
		From:    from,
		To:      to,
		DEXName: dex,
		Quoter: &pricegraph.V3Quoter{
			SqrtPriceX96: q96.Clone(),
			Liquidity:    uint256.NewInt(liquidity),
			ZeroForOne:   zeroForOne,
			Fee:          ammmath.FeePips(3000), // 0.3%
		},
		BlockNumber:  400,
		LiquidityUSD: 500_000,
	}
}

func TestDetect_V2VsV3Spread_FindsOpportunity(t *testing.T) {
	g := pricegraph.New()
	// v2 quotes a noticeably richer rate (1.05) than v3's price-1.0 pool.
	g.Upsert(v2Edge(tokenA, tokenB, "uniswapv2", 1_000_000, 1_050_000))
	g.Upsert(v2Edge(tokenB, tokenA, "uniswapv2", 1_050_000, 1_000_000))
	g.Upsert(v3Edge(tokenA, tokenB, "uniswapv3-3000", true, 2_000_000))
	g.Upsert(v3Edge(tokenB, tokenA, "uniswapv3-3000", false, 2_000_000))

	d := feetier.New()
	opps := d.Detect(context.Background(), g, detect.DetectConfig{BlockNumber: 400})

	require.NotEmpty(t, opps)
	for _, o := range opps {
		assert.Equal(t, detect.VariantV2V3, o.Variant)
		assert.True(t, o.GrossProfit.Sign() > 0)
	}
}

func TestDetect_PureV2V2Pair_NoOpportunity(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(v2Edge(tokenA, tokenB, "dexX", 1_000_000, 1_050_000))
	g.Upsert(v2Edge(tokenB, tokenA, "dexY", 1_050_000, 1_000_000))

	d := feetier.New()
	opps := d.Detect(context.Background(), g, detect.DetectConfig{})
	assert.Empty(t, opps, "pure v2-v2 spreads are crossdex's job, not feetier's")
}

func TestDetect_IntraV3SamePriceDifferentFeeTier_NotProfitableAfterFees(t *testing.T) {
	g := pricegraph.New()
	// Same underlying price on both tiers: round-tripping through two fee
	// charges can never turn a profit.
	low := v3Edge(tokenA, tokenB, "uniswapv3-500", true, 2_000_000)
	low.Quoter.(*pricegraph.V3Quoter).Fee = ammmath.FeePips(500) // 0.05%
	g.Upsert(low)
	g.Upsert(v3Edge(tokenB, tokenA, "uniswapv3-3000", false, 2_000_000))

	d := feetier.New()
	opps := d.Detect(context.Background(), g, detect.DetectConfig{})
	assert.Empty(t, opps)
}
