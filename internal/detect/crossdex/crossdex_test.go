package crossdex_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-bot/internal/ammmath"
	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/detect/crossdex"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

var (
	tokenA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
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
		BlockNumber:  100,
		LiquidityUSD: 500_000,
	}
}

func TestDetect_FindsProfitableRoundTrip(t *testing.T) {
	g := pricegraph.New()
	// dexX quotes roughly 2 B per A; dexY quotes roughly 3 A per B -- a
	// clean round-trip spread.
	g.Upsert(v2Edge(tokenA, tokenB, "dexX", 1_000_000, 2_000_000))
	g.Upsert(v2Edge(tokenB, tokenA, "dexX", 2_000_000, 1_000_000))
	g.Upsert(v2Edge(tokenA, tokenB, "dexY", 1_000_000, 700_000))
	g.Upsert(v2Edge(tokenB, tokenA, "dexY", 1_000_000, 3_000_000))

	d := crossdex.New()
	opps := d.Detect(context.Background(), g, detect.DetectConfig{BlockNumber: 100})

	require.NotEmpty(t, opps)
	found := false
	for _, o := range opps {
		assert.Equal(t, detect.VariantTwoDEX, o.Variant)
		if o.DEXes[0] == "dexX" && o.DEXes[1] == "dexY" {
			found = true
			assert.True(t, o.GrossProfit.Sign() > 0)
			assert.True(t, o.InputAmount.Sign() > 0)
		}
	}
	assert.True(t, found, "expected a dexX-buy / dexY-sell round trip")
}

func TestDetect_NoEdgesNoOpportunities(t *testing.T) {
	g := pricegraph.New()
	d := crossdex.New()
	opps := d.Detect(context.Background(), g, detect.DetectConfig{})
	assert.Empty(t, opps)
}

func TestDetect_SingleSidedPairYieldsNoOpportunity(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(v2Edge(tokenA, tokenB, "dexX", 1_000_000, 2_000_000))
	// no reverse edge at all: nothing to round-trip with.
	d := crossdex.New()
	opps := d.Detect(context.Background(), g, detect.DetectConfig{})
	assert.Empty(t, opps)
}

func TestDetect_SkipsSameDEXRoundTrip(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(v2Edge(tokenA, tokenB, "dexX", 1_000_000, 2_000_000))
	g.Upsert(v2Edge(tokenB, tokenA, "dexX", 2_000_000, 1_000_000))

	d := crossdex.New()
	opps := d.Detect(context.Background(), g, detect.DetectConfig{})
	assert.Empty(t, opps, "a single venue's own reverse quote is not a round trip")
}
