package triangular_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-bot/internal/ammmath"
	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/detect/triangular"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

var (
	base = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokA = common.HexToAddress("0x1000000000000000000000000000000000000002")
	tokB = common.HexToAddress("0x1000000000000000000000000000000000000003")
)

func v2Edge(from, to common.Address, dex string, reserveIn, reserveOut uint64, fee float64) *pricegraph.Edge {
	return &pricegraph.Edge{
		From:    from,
		To:      to,
		DEXName: dex,
		Quoter: &pricegraph.V2Quoter{
			ReserveIn:  uint256.NewInt(reserveIn),
			ReserveOut: uint256.NewInt(reserveOut),
			Fee:        ammmath.NewFeeNumerator(fee),
		},
		BlockNumber:  200,
		LiquidityUSD: 1_000_000,
	}
}

// TestDetect_Scenario3_TriangularCycleWithFees is spec.md §8 scenario 3:
// a single-DEX triangular cycle with spot rate 1.02 at each of three hops
// and a 0.3% fee per hop (cycle product before fees 1.0612, net after fees
// ~5.17%), which must yield a positive, price-impact-reduced profit.
func TestDetect_Scenario3_TriangularCycleWithFees(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(v2Edge(base, tokA, "dexX", 1_000_000, 1_020_000, 0.003))
	g.Upsert(v2Edge(tokA, tokB, "dexX", 1_000_000, 1_020_000, 0.003))
	g.Upsert(v2Edge(tokB, base, "dexX", 1_000_000, 1_020_000, 0.003))

	d := triangular.New()
	cfg := detect.DetectConfig{
		BaseTokens:       []common.Address{base},
		MinProfitPercent: 1,
		BlockNumber:      200,
	}
	opps := d.Detect(context.Background(), g, cfg)

	require.NotEmpty(t, opps)
	got := opps[0]
	assert.Equal(t, detect.VariantTriangularSingleDEX, got.Variant)
	assert.True(t, got.GrossProfit.Sign() > 0)

	profitRatio := detect.ToFloat64(got.GrossProfit) / detect.ToFloat64(got.InputAmount)
	assert.Less(t, profitRatio, 0.0517, "price impact must leave real profit below the spot-rate prediction")
	assert.Greater(t, profitRatio, 0.0)
}

func TestDetect_NoBaseTokensConfigured_ReturnsEmpty(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(v2Edge(base, tokA, "dexX", 1_000_000, 1_020_000, 0.003))
	d := triangular.New()
	opps := d.Detect(context.Background(), g, detect.DetectConfig{})
	assert.Empty(t, opps)
}

func TestDetect_BelowMinProfitPercent_Rejected(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(v2Edge(base, tokA, "dexX", 1_000_000, 1_020_000, 0.003))
	g.Upsert(v2Edge(tokA, tokB, "dexX", 1_000_000, 1_020_000, 0.003))
	g.Upsert(v2Edge(tokB, base, "dexX", 1_000_000, 1_020_000, 0.003))

	d := triangular.New()
	cfg := detect.DetectConfig{
		BaseTokens:       []common.Address{base},
		MinProfitPercent: 10, // above the ~5.17% net cycle profit
	}
	opps := d.Detect(context.Background(), g, cfg)
	assert.Empty(t, opps)
}

func TestDetect_CrossDEXMode_PicksBestRatePerHop(t *testing.T) {
	g := pricegraph.New()
	// dexX is uniformly mediocre; dexY is better on the Base->A hop only.
	g.Upsert(v2Edge(base, tokA, "dexX", 1_000_000, 1_010_000, 0.003))
	g.Upsert(v2Edge(base, tokA, "dexY", 1_000_000, 1_030_000, 0.003))
	g.Upsert(v2Edge(tokA, tokB, "dexX", 1_000_000, 1_020_000, 0.003))
	g.Upsert(v2Edge(tokB, base, "dexX", 1_000_000, 1_020_000, 0.003))

	d := triangular.New()
	cfg := detect.DetectConfig{
		BaseTokens:       []common.Address{base},
		MinProfitPercent: 1,
		BlockNumber:      200,
	}
	opps := d.Detect(context.Background(), g, cfg)

	require.NotEmpty(t, opps)
	var crossDEX bool
	for _, o := range opps {
		if o.Variant == detect.VariantTriangularCrossDEX {
			crossDEX = true
			assert.Equal(t, "dexY", o.DEXes[0])
		}
	}
	assert.True(t, crossDEX)
}
