package multihop_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-bot/internal/ammmath"
	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/detect/multihop"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

var (
	base = common.HexToAddress("0x2000000000000000000000000000000000000001")
	tokA = common.HexToAddress("0x2000000000000000000000000000000000000002")
	tokB = common.HexToAddress("0x2000000000000000000000000000000000000003")
	tokC = common.HexToAddress("0x2000000000000000000000000000000000000004")
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
		BlockNumber:  300,
		LiquidityUSD: 1_000_000,
	}
}

func fourHopGraph() *pricegraph.Graph {
	g := pricegraph.New()
	g.Upsert(v2Edge(base, tokA, "dexX", 1_000_000, 1_015_000))
	g.Upsert(v2Edge(tokA, tokB, "dexX", 1_000_000, 1_015_000))
	g.Upsert(v2Edge(tokB, tokC, "dexX", 1_000_000, 1_015_000))
	g.Upsert(v2Edge(tokC, base, "dexX", 1_000_000, 1_015_000))
	return g
}

func TestDetect_FindsProfitableFourHopCycle(t *testing.T) {
	g := fourHopGraph()
	d := multihop.New()
	cfg := detect.DetectConfig{
		BaseTokens:       []common.Address{base},
		MinProfitPercent: 1,
		MaxCycleLength:   5,
		BlockNumber:      300,
	}
	opps := d.Detect(context.Background(), g, cfg)

	require.NotEmpty(t, opps)
	got := opps[0]
	assert.Equal(t, detect.VariantMultiHop, got.Variant)
	assert.Equal(t, []common.Address{base, tokA, tokB, tokC, base}, got.Path)
	assert.True(t, got.GrossProfit.Sign() > 0)
}

func TestDetect_CycleLongerThanMaxLengthIsRejected(t *testing.T) {
	g := fourHopGraph()
	d := multihop.New()
	cfg := detect.DetectConfig{
		BaseTokens:       []common.Address{base},
		MinProfitPercent: 1,
		MaxCycleLength:   3, // the only cycle present needs 4 hops
		BlockNumber:      300,
	}
	opps := d.Detect(context.Background(), g, cfg)
	assert.Empty(t, opps)
}

func TestDetect_NoPathBackToBase_NoOpportunity(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(v2Edge(base, tokA, "dexX", 1_000_000, 1_015_000))
	g.Upsert(v2Edge(tokA, tokB, "dexX", 1_000_000, 1_015_000))
	// no edge back to base: no cycle exists.
	d := multihop.New()
	cfg := detect.DetectConfig{BaseTokens: []common.Address{base}, MaxCycleLength: 5}
	opps := d.Detect(context.Background(), g, cfg)
	assert.Empty(t, opps)
}

func TestDetect_OneVisitBudget_ReturnsNoOpportunities(t *testing.T) {
	g := fourHopGraph()
	d := multihop.New()
	cfg := detect.DetectConfig{
		BaseTokens:       []common.Address{base},
		MinProfitPercent: 1,
		MaxCycleLength:   5,
		MaxCyclesVisited: 1,
	}
	opps := d.Detect(context.Background(), g, cfg)
	assert.Empty(t, opps, "a budget of 1 visited edge cannot reach a 4-hop cycle")
}
