package pricegraph_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/arbitrage-bot/internal/ammmath"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

var (
	tokenA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func makeEdge(blockNumber uint64, liquidityUSD float64) *pricegraph.Edge {
	return &pricegraph.Edge{
		From:    tokenA,
		To:      tokenB,
		DEXName: "dexA",
		Quoter: &pricegraph.V2Quoter{
			ReserveIn:  uint256.NewInt(1000),
			ReserveOut: uint256.NewInt(2000),
			Fee:        ammmath.NewFeeNumerator(0.003),
		},
		BlockNumber:  blockNumber,
		LiquidityUSD: liquidityUSD,
	}
}

func TestGraph_UpsertIdempotent(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(makeEdge(100, 5000))
	g.Upsert(makeEdge(100, 5000))

	edges := g.Edges(tokenA, tokenB, nil)
	assert.Len(t, edges, 1)
}

func TestGraph_DiscardsStaleUpdate(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(makeEdge(100, 5000))
	g.Upsert(makeEdge(50, 9999)) // older block, must be discarded

	edges := g.Edges(tokenA, tokenB, nil)
	assert.Len(t, edges, 1)
	assert.Equal(t, float64(5000), edges[0].LiquidityUSD)
}

func TestGraph_LiquidityFilter(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(makeEdge(100, 500))

	assert.Empty(t, g.Edges(tokenA, tokenB, pricegraph.MinLiquidityUSD(1000)))
	assert.Len(t, g.Edges(tokenA, tokenB, pricegraph.MinLiquidityUSD(100)), 1)
}

func TestGraph_Neighbors(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(makeEdge(100, 5000))

	neighbors := g.Neighbors(tokenA, nil)
	assert.Len(t, neighbors, 1)
	assert.Equal(t, tokenB, neighbors[0].Neighbor)
}

func TestGraph_Remove(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(makeEdge(100, 5000))
	g.Remove(tokenA, tokenB, "dexA")
	assert.Empty(t, g.Edges(tokenA, tokenB, nil))
}
