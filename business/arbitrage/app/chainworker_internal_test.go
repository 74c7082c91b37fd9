package app

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fd1az/arbitrage-bot/business/arbitrage/domain"
	chainfeedDomain "github.com/fd1az/arbitrage-bot/business/chainfeed/domain"
	"github.com/fd1az/arbitrage-bot/internal/config"
	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

var (
	testWETH = common.HexToAddress("0x0000000000000000000000000000000000dEaD")
	testUSDC = common.HexToAddress("0x0000000000000000000000000000000000cafe")
)

func testWorker() *ChainWorker {
	cfg := config.ChainConfig{
		ChainID: 1,
		Name:    "ethereum",
		Tokens: []config.TokenConfig{
			{Symbol: "WETH", Address: testWETH.Hex(), Decimals: 18},
			{Symbol: "USDC", Address: testUSDC.Hex(), Decimals: 6},
		},
		BaseTokens:  []string{"WETH"},
		MinTradeUSD: 10,
		MaxTradeUSD: 1_000_000,
	}
	return NewChainWorker(
		cfg,
		config.ArbitrageConfig{MaxCycleLength: 4, MaxCyclesVisited: 500, StalenessBoundBlocks: 2},
		nil, nil, nil, nil, nil, nil, &discardReporter{},
		logger.Noop(),
	)
}

func testSnapshot() chainfeedDomain.PoolSnapshot {
	return chainfeedDomain.PoolSnapshot{
		Pool:     common.HexToAddress("0x1"),
		DEXName:  "uniswap-v2",
		Family:   string(config.FamilyConstantProductV2),
		Token0:   testWETH,
		Token1:   testUSDC,
		Reserve0: uint256.NewInt(1_000_000_000_000_000_000),
		Reserve1: uint256.NewInt(2_000_000_000),
		SwapFee:  0.003,
	}
}

func hasEdge(g *pricegraph.Graph) bool {
	return len(g.Edges(testWETH, testUSDC, pricegraph.AlwaysAdmit)) > 0
}

func TestChainWorker_BuildGraph_ScansNewPairOnFirstSight(t *testing.T) {
	w := testWorker()
	pm := chainfeedDomain.PriceMap{
		chainfeedDomain.NewPairKey("WETH", "USDC"): {"uniswap-v2": testSnapshot()},
	}

	g := w.buildGraph(context.Background(), pm, 1)
	if !hasEdge(g) {
		t.Fatal("expected a brand-new pair to be scanned on the block it is first seen")
	}
	if _, tracked := w.prioritizer.TierOf(string(chainfeedDomain.NewPairKey("WETH", "USDC"))); !tracked {
		t.Error("expected buildGraph to register the pair with the prioritizer")
	}
}

func TestChainWorker_BuildGraph_GatesAlreadyTrackedPairByTier(t *testing.T) {
	w := testWorker()
	key := string(chainfeedDomain.NewPairKey("WETH", "USDC"))
	// Liquidity below $10k classifies the pair COLD (frequency 5): register
	// it directly so the next calls exercise the gating decision rather than
	// the always-scan first-sight path.
	w.prioritizer.Register(key, 0, 100, time.Now())

	pm := chainfeedDomain.PriceMap{
		chainfeedDomain.NewPairKey("WETH", "USDC"): {"uniswap-v2": testSnapshot()},
	}

	if g := w.buildGraph(context.Background(), pm, 7); hasEdge(g) { // 7 % 5 != 0
		t.Error("expected a COLD-tier pair not due this block to be left out of the graph")
	}
	if g := w.buildGraph(context.Background(), pm, 10); !hasEdge(g) { // 10 % 5 == 0
		t.Error("expected the pair to be scanned on a block matching its tier frequency")
	}
}

func TestChainWorker_PairKeyOf(t *testing.T) {
	w := testWorker()
	path := []common.Address{testWETH, testUSDC}
	if got := w.pairKeyOf(path); got == "" {
		t.Error("expected a non-empty pair key for a two-hop path")
	}
	if got := w.pairKeyOf(path[:1]); got != "" {
		t.Errorf("expected an empty pair key for a path shorter than two hops, got %q", got)
	}
}

func TestChainWorker_MaybeReport_NonProfitableSkipsPrioritizerPromotion(t *testing.T) {
	w := testWorker()

	ro := domain.RankedOpportunity{
		Opportunity: detect.Opportunity{
			Variant: detect.VariantTwoDEX,
			Path:    []common.Address{testWETH, testUSDC},
		},
		ChainID: 1,
	}
	// Zero NetProfitUSD: not profitable, so this only exercises the
	// signal-variant-skip branch without promoting anything.
	w.maybeReport(context.Background(), ro)

	if _, tracked := w.prioritizer.TierOf(w.pairKeyOf(ro.Path)); tracked {
		t.Error("expected a non-profitable, non-signal opportunity to leave the prioritizer untouched")
	}
}

type discardReporter struct{}

func (discardReporter) Start(ctx context.Context) error { return nil }
func (discardReporter) Report(domain.RankedOpportunity) {}
func (discardReporter) UpdateConnectionStatus(chainName string, connected bool, latency time.Duration) {
}
func (discardReporter) UpdateBlock(chainName string, blockNumber uint64)   {}
func (discardReporter) UpdateGasPrice(chainName string, gweiPrice float64) {}
func (discardReporter) Stop() error                                       { return nil }
