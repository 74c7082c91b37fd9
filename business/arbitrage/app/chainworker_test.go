package app_test

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	arbitrageApp "github.com/fd1az/arbitrage-bot/business/arbitrage/app"
	arbitrageDomain "github.com/fd1az/arbitrage-bot/business/arbitrage/domain"
	blockchainApp "github.com/fd1az/arbitrage-bot/business/blockchain/app"
	blockchainDomain "github.com/fd1az/arbitrage-bot/business/blockchain/domain"
	chainfeedDomain "github.com/fd1az/arbitrage-bot/business/chainfeed/domain"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/detect/jit"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// stubSubscriber hands back a buffered block channel that the test feeds
// directly.
type stubSubscriber struct {
	blocks chan *blockchainDomain.Block
}

func newStubSubscriber() *stubSubscriber {
	return &stubSubscriber{blocks: make(chan *blockchainDomain.Block, 4)}
}

func (s *stubSubscriber) Subscribe(ctx context.Context) (<-chan *blockchainDomain.Block, error) {
	return s.blocks, nil
}

func (s *stubSubscriber) LatestBlock(ctx context.Context) (*blockchainDomain.Block, error) {
	return &blockchainDomain.Block{Number: 1}, nil
}

func (s *stubSubscriber) State() blockchainDomain.ConnectionState {
	return blockchainDomain.StateConnected
}

func weiFromGwei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(1_000_000_000))
}

type noopGasOracle struct{}

func (noopGasOracle) GetGasPrice(ctx context.Context) (*blockchainDomain.GasPrice, error) {
	return blockchainDomain.NewGasPrice(weiFromGwei(25)), nil
}

func (noopGasOracle) EstimateGas(ctx context.Context, data []byte, to string) (uint64, error) {
	return 21000, nil
}

type stubPriceSource struct {
	mu       sync.Mutex
	snapshot chainfeedDomain.PriceMap
}

func (s *stubPriceSource) Snapshot() chainfeedDomain.PriceMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *stubPriceSource) Start(ctx context.Context) error { return nil }
func (s *stubPriceSource) Stop() error                     { return nil }

type stubJITSource struct{}

func (stubJITSource) DrainJITEvents() []jit.Event               { return nil }
func (stubJITSource) JITFrequency(pool common.Address) float64  { return 0 }

type stubOracle struct{}

func (stubOracle) USDPrice(ctx context.Context, chainID uint64, token common.Address) (decimal.Decimal, bool) {
	return decimal.NewFromInt(1), true
}

type stubReporter struct {
	reportCount  int32
	statusCalls  int32
	blockCalls   int32
	gasCalls     int32
}

func (r *stubReporter) Start(ctx context.Context) error { return nil }
func (r *stubReporter) Report(opp arbitrageDomain.RankedOpportunity) {
	atomic.AddInt32(&r.reportCount, 1)
}
func (r *stubReporter) UpdateConnectionStatus(chainName string, connected bool, latency time.Duration) {
	atomic.AddInt32(&r.statusCalls, 1)
}
func (r *stubReporter) UpdateBlock(chainName string, blockNumber uint64) {
	atomic.AddInt32(&r.blockCalls, 1)
}
func (r *stubReporter) UpdateGasPrice(chainName string, gweiPrice float64) {
	atomic.AddInt32(&r.gasCalls, 1)
}
func (r *stubReporter) Stop() error { return nil }

func testChainConfig() config.ChainConfig {
	return config.ChainConfig{
		ChainID: 1,
		Name:    "ethereum",
		Tokens: []config.TokenConfig{
			{Symbol: "WETH", Address: "0x0000000000000000000000000000000000dEaD", Decimals: 18},
			{Symbol: "USDC", Address: "0x0000000000000000000000000000000000cafe", Decimals: 6},
		},
		BaseTokens: []string{"WETH"},
		MinTradeUSD: 10,
		MaxTradeUSD: 1_000_000,
	}
}

func TestChainWorker_StartRunsDetectionPassAndStops(t *testing.T) {
	subscriber := newStubSubscriber()
	blockchainService := blockchainApp.NewBlockchainService(subscriber, noopGasOracle{})

	snap := chainfeedDomain.PoolSnapshot{
		Pool:     common.HexToAddress("0x1"),
		DEXName:  "uniswap-v2",
		Family:   string(config.FamilyConstantProductV2),
		Token0:   common.HexToAddress("0x0000000000000000000000000000000000dEaD"),
		Token1:   common.HexToAddress("0x0000000000000000000000000000000000cafe"),
		Reserve0: uint256.NewInt(1_000_000_000_000_000_000),
		Reserve1: uint256.NewInt(2_000_000_000),
		SwapFee:  0.003,
	}
	prices := &stubPriceSource{snapshot: chainfeedDomain.PriceMap{
		chainfeedDomain.NewPairKey("WETH", "USDC"): {"uniswap-v2": snap},
	}}

	reporter := &stubReporter{}

	worker := arbitrageApp.NewChainWorker(
		testChainConfig(),
		config.ArbitrageConfig{MaxCycleLength: 4, MaxCyclesVisited: 500, StalenessBoundBlocks: 2},
		blockchainService,
		prices,
		stubJITSource{},
		nil,
		stubOracle{},
		nil,
		reporter,
		logger.Noop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		t.Fatalf("unexpected error starting chain worker: %v", err)
	}

	subscriber.blocks <- &blockchainDomain.Block{Number: 100}

	time.Sleep(50 * time.Millisecond)

	if atomic.LoadInt32(&reporter.blockCalls) == 0 {
		t.Error("expected reporter.UpdateBlock to be called for the processed block")
	}
	if atomic.LoadInt32(&reporter.gasCalls) == 0 {
		t.Error("expected reporter.UpdateGasPrice to be called")
	}

	cancel()

	select {
	case <-worker.Done():
	case <-time.After(time.Second):
		t.Fatal("expected worker.Done() to close after context cancellation")
	}

	if err := worker.Stop(); err != nil {
		t.Errorf("unexpected error stopping chain worker: %v", err)
	}
}
