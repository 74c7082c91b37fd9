// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blockchainApp "github.com/fd1az/arbitrage-bot/business/blockchain/app"
	blockchainDomain "github.com/fd1az/arbitrage-bot/business/blockchain/domain"
	chainfeedApp "github.com/fd1az/arbitrage-bot/business/chainfeed/app"
	chainfeedDomain "github.com/fd1az/arbitrage-bot/business/chainfeed/domain"
	"github.com/fd1az/arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-bot/internal/ammmath"
	"github.com/fd1az/arbitrage-bot/internal/asset"
	"github.com/fd1az/arbitrage-bot/internal/config"
	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/detect/crossdex"
	"github.com/fd1az/arbitrage-bot/internal/detect/feetier"
	"github.com/fd1az/arbitrage-bot/internal/detect/jit"
	"github.com/fd1az/arbitrage-bot/internal/detect/lsd"
	"github.com/fd1az/arbitrage-bot/internal/detect/multihop"
	"github.com/fd1az/arbitrage-bot/internal/detect/stable"
	"github.com/fd1az/arbitrage-bot/internal/detect/triangular"
	"github.com/fd1az/arbitrage-bot/internal/blocktime"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/mevsim"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
	"github.com/fd1az/arbitrage-bot/internal/prioritizer"
	"github.com/fd1az/arbitrage-bot/internal/profitmodel"
	"github.com/fd1az/arbitrage-bot/internal/scorer"
)

const (
	tracerName = "github.com/fd1az/arbitrage-bot/business/arbitrage/app"
	meterName  = "github.com/fd1az/arbitrage-bot/business/arbitrage/app"
)

// q96 is 2^96, the fixed-point base sqrtPriceX96 is expressed in.
const q96 = 79228162514264337593543950336.0

// JITSource is the subset of chainfeed.Service a ChainWorker polls once per
// block for matched just-in-time liquidity events (spec.md §4.9). Kept
// narrow rather than depending on the concrete *chainfeedApp.Service so
// tests can supply a stub.
type JITSource interface {
	DrainJITEvents() []jit.Event
	JITFrequency(pool common.Address) float64
}

// chainWorkerMetrics holds OTEL metric instruments for one chain worker.
type chainWorkerMetrics struct {
	opportunitiesDetected   metric.Int64Counter
	opportunitiesProfitable metric.Int64Counter
	netProfitUSD            metric.Float64Histogram
	blockLatency            metric.Float64Histogram
}

// ChainWorker runs the full detection pipeline for a single configured
// chain: build the price graph from the chainfeed snapshot, run every
// graph-based detector plus the JIT tracker, cost and score each
// opportunity, and hand it to the Reporter (spec.md §4.15 "one chain
// worker task per chain").
type ChainWorker struct {
	cfg    config.ChainConfig
	arbCfg config.ArbitrageConfig

	blockchain *blockchainApp.BlockchainService
	prices     chainfeedApp.PriceSource
	jitSource  JITSource
	assets     *asset.Registry
	oracle     TokenPriceOracle
	reporter   Reporter
	log        logger.LoggerInterface

	detectors []detect.Detector

	baseTokens    []common.Address
	stablecoins   map[common.Address]bool
	baseTokenSet  map[common.Address]bool
	wrappedNative common.Address

	tracer  trace.Tracer
	metrics *chainWorkerMetrics

	prioritizer    *prioritizer.Prioritizer
	blockPredictor *blocktime.Predictor

	done chan struct{}
}

// NewChainWorker builds a ChainWorker for one chain. assets and oracle may
// be shared across every chain worker in the process; rates may be nil, in
// which case the LSD detector runs with every asset's protocol rate
// reporting unavailable (spec.md §4.9 "no rate available: skip the asset").
func NewChainWorker(
	cfg config.ChainConfig,
	arbCfg config.ArbitrageConfig,
	blockchain *blockchainApp.BlockchainService,
	prices chainfeedApp.PriceSource,
	jitSource JITSource,
	assets *asset.Registry,
	oracle TokenPriceOracle,
	rates lsd.ProtocolRateProvider,
	reporter Reporter,
	log logger.LoggerInterface,
) *ChainWorker {
	w := &ChainWorker{
		cfg:           cfg,
		arbCfg:        arbCfg,
		blockchain:    blockchain,
		prices:        prices,
		jitSource:     jitSource,
		assets:        assets,
		oracle:        oracle,
		reporter:      reporter,
		log:           log,
		stablecoins:   make(map[common.Address]bool),
		baseTokenSet:  make(map[common.Address]bool),
		wrappedNative: common.HexToAddress(cfg.WrappedNative),
		tracer:        otel.Tracer(tracerName),

		prioritizer:    prioritizer.New(nil),
		blockPredictor: blocktime.New(blocktime.DefaultWindowSize, blocktime.DefaultBlockTime(cfg.Name)),
	}

	for _, symbol := range cfg.BaseTokens {
		if t, ok := cfg.TokenBySymbol(symbol); ok {
			addr := common.HexToAddress(t.Address)
			w.baseTokens = append(w.baseTokens, addr)
			w.baseTokenSet[addr] = true
		}
	}
	for _, symbol := range cfg.Stablecoins {
		if t, ok := cfg.TokenBySymbol(symbol); ok {
			w.stablecoins[common.HexToAddress(t.Address)] = true
		}
	}

	w.detectors = []detect.Detector{
		crossdex.New(),
		triangular.New(),
		multihop.New(),
		feetier.New(),
		stable.New(w.addressesOf(cfg.Stablecoins, cfg)),
		lsd.New(w.lsdAssets(cfg), rates),
	}

	if err := w.initMetrics(); err != nil && log != nil {
		log.Error(context.Background(), "chain worker: failed to initialize metrics", "chain", cfg.Name, "error", err)
	}

	return w
}

func (w *ChainWorker) addressesOf(symbols []string, cfg config.ChainConfig) []common.Address {
	out := make([]common.Address, 0, len(symbols))
	for _, s := range symbols {
		if t, ok := cfg.TokenBySymbol(s); ok {
			out = append(out, common.HexToAddress(t.Address))
		}
	}
	return out
}

func (w *ChainWorker) lsdAssets(cfg config.ChainConfig) []lsd.Asset {
	out := make([]lsd.Asset, 0, len(cfg.LSDAssets))
	for _, a := range cfg.LSDAssets {
		token, ok1 := cfg.TokenBySymbol(a.Token)
		underlying, ok2 := cfg.TokenBySymbol(a.Underlying)
		if !ok1 || !ok2 {
			continue
		}
		out = append(out, lsd.Asset{
			Token:         common.HexToAddress(token.Address),
			Underlying:    common.HexToAddress(underlying.Address),
			RebaseHourUTC: a.RebaseHourUTC,
			RebaseWindow:  a.RebaseWindow,
		})
	}
	return out
}

func (w *ChainWorker) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &chainWorkerMetrics{}
	var err error

	m.opportunitiesDetected, err = meter.Int64Counter(
		"chainworker_opportunities_detected_total",
		metric.WithDescription("Total number of opportunities detected across all variants"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}
	m.opportunitiesProfitable, err = meter.Int64Counter(
		"chainworker_opportunities_profitable_total",
		metric.WithDescription("Total number of net-profitable opportunities"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}
	m.netProfitUSD, err = meter.Float64Histogram(
		"chainworker_net_profit_usd",
		metric.WithDescription("Net profit in USD after gas, flash-loan fee and slippage"),
		metric.WithUnit("{USD}"),
		metric.WithExplicitBucketBoundaries(-100, -50, -10, 0, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}
	m.blockLatency, err = meter.Float64Histogram(
		"chainworker_block_processing_ms",
		metric.WithDescription("Time to run the full detector pass for one block"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	w.metrics = m
	return nil
}

// Start begins the chain worker's block-driven detection loop.
func (w *ChainWorker) Start(ctx context.Context) error {
	w.log.Info(ctx, "starting chain worker", "chain", w.cfg.Name, "chain_id", w.cfg.ChainID)

	w.reporter.UpdateConnectionStatus(w.cfg.Name, false, 0)

	if err := w.prices.Start(ctx); err != nil {
		return err
	}

	blocks, err := w.blockchain.SubscribeBlocks(ctx)
	if err != nil {
		w.log.Error(ctx, "chain worker: failed to subscribe to blocks", "chain", w.cfg.Name, "error", err)
		return err
	}

	w.reporter.UpdateConnectionStatus(w.cfg.Name, true, 0)

	w.done = make(chan struct{})
	go w.run(ctx, blocks)
	return nil
}

// Stop tears down the price source; the block subscription exits on ctx
// cancellation, mirroring the teacher's cancellation-driven shutdown.
func (w *ChainWorker) Stop() error {
	return w.prices.Stop()
}

// Done reports when the worker's run loop has exited, whether from context
// cancellation or a recovered panic, so a Coordinator can detect the latter
// and restart the worker (spec.md §4.15).
func (w *ChainWorker) Done() <-chan struct{} {
	return w.done
}

func (w *ChainWorker) run(ctx context.Context, blocks <-chan *blockchainDomain.Block) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			w.log.Error(ctx, "chain worker: recovered from panic", "chain", w.cfg.Name, "panic", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.log.Info(ctx, "chain worker stopping", "chain", w.cfg.Name, "reason", ctx.Err())
			return
		case block := <-blocks:
			if block != nil {
				w.onNewBlock(ctx, block)
			}
		}
	}
}

func (w *ChainWorker) onNewBlock(ctx context.Context, block *blockchainDomain.Block) {
	start := time.Now()
	ctx, span := w.tracer.Start(ctx, "onNewBlock",
		trace.WithAttributes(
			attribute.String("chain", w.cfg.Name),
			attribute.Int64("block_number", int64(block.Number)),
		),
	)
	defer span.End()

	w.log.Debug(ctx, "chain worker: processing block", "chain", w.cfg.Name, "number", block.Number)
	w.reporter.UpdateBlock(w.cfg.Name, block.Number)

	w.blockPredictor.Observe(block.Timestamp)
	w.prioritizer.Tick(block.Timestamp)

	gasPrice, err := w.blockchain.GetGasPrice(ctx)
	if err != nil {
		w.log.Error(ctx, "chain worker: failed to get gas price", "chain", w.cfg.Name, "error", err)
		return
	}
	w.reporter.UpdateGasPrice(w.cfg.Name, gasPrice.Gwei())

	snapshot := w.prices.Snapshot()
	g := w.buildGraph(ctx, snapshot, block.Number)
	detectCfg := w.detectConfig(ctx, block.Number)

	var opportunities []detect.Opportunity
	for _, d := range w.detectors {
		opportunities = append(opportunities, d.Detect(ctx, g, detectCfg)...)
	}
	if w.jitSource != nil {
		for _, ev := range w.jitSource.DrainJITEvents() {
			opportunities = append(opportunities, jit.ToOpportunity(ev, detectCfg))
		}
	}

	metricAttrs := metric.WithAttributes(attribute.String("chain", w.cfg.Name))
	for _, opp := range opportunities {
		ranked := w.score(ctx, opp, block, gasPrice)
		if w.metrics != nil {
			w.metrics.opportunitiesDetected.Add(ctx, 1, metricAttrs)
			if ranked.IsProfitable() {
				w.metrics.opportunitiesProfitable.Add(ctx, 1, metricAttrs)
			}
			netUSD, _ := ranked.NetProfitUSD.Float64()
			w.metrics.netProfitUSD.Record(ctx, netUSD, metricAttrs)
		}
		if ranked.IsProfitable() {
			w.prioritizer.OnOpportunity(w.pairKeyOf(ranked.Path), block.Timestamp)
		}
		w.maybeReport(ctx, ranked)
	}

	if w.metrics != nil {
		w.metrics.blockLatency.Record(ctx, float64(time.Since(start).Milliseconds()), metricAttrs)
	}
}

func (w *ChainWorker) maybeReport(ctx context.Context, ro domain.RankedOpportunity) {
	if !ro.IsProfitable() && !isSignalVariant(ro.Variant) {
		return
	}
	if ro.IsProfitable() {
		window := w.blockPredictor.OptimalSubmissionWindow(time.Now(), 0)
		w.log.Info(ctx, "chain worker: profitable opportunity ready to submit",
			"chain", w.cfg.Name, "variant", ro.Variant, "net_profit_usd", ro.NetProfitUSD.String(),
			"submit_in", window, "block_time_confidence", w.blockPredictor.Confidence())
	}
	w.reporter.Report(ro)
}

// pairKeyOf derives the scan-priority pair key for an opportunity's entry
// hop (its first two path tokens), the same symbol-pair identity the
// chainfeed snapshot pipeline registers pairs under, so a profitable
// opportunity promotes the same tier entry buildGraph gates on.
func (w *ChainWorker) pairKeyOf(path []common.Address) string {
	if len(path) < 2 {
		return ""
	}
	return string(chainfeedDomain.NewPairKey(w.symbolOf(path[0]), w.symbolOf(path[1])))
}

func (w *ChainWorker) symbolOf(token common.Address) string {
	if w.assets == nil {
		return token.Hex()
	}
	a, ok := w.assets.GetToken(w.cfg.ChainID, token)
	if !ok {
		return token.Hex()
	}
	return a.Symbol()
}

func isSignalVariant(v detect.Variant) bool {
	switch v {
	case detect.VariantStable, detect.VariantLSDProtocolDEX, detect.VariantLSDCrossDEX, detect.VariantJITArb:
		return true
	default:
		return false
	}
}

func (w *ChainWorker) detectConfig(ctx context.Context, blockNumber uint64) detect.DetectConfig {
	return detect.DetectConfig{
		MinProfitPercent:   w.cfg.MinProfitPercent,
		MinTradeUSD:        w.cfg.MinTradeUSD,
		MaxTradeUSD:        w.cfg.MaxTradeUSD,
		FlashLoanFeeRate:   decimal.NewFromFloat(w.cfg.FlashLoan.FeeBps / 10_000),
		FlashLoanAvailable: w.cfg.FlashLoan.Available(),
		MaxCycleLength:     w.arbCfg.MaxCycleLength,
		MaxCyclesVisited:   w.arbCfg.MaxCyclesVisited,
		LiquidityFloors: detect.LiquidityFloorUSD{
			CrossDEX:   w.cfg.LiquidityFloors.CrossDEX,
			Triangular: w.cfg.LiquidityFloors.Triangular,
			MultiHop:   w.cfg.LiquidityFloors.MultiHop,
			FeeTier:    w.cfg.LiquidityFloors.FeeTier,
			Stable:     w.cfg.LiquidityFloors.Stable,
			LSD:        w.cfg.LiquidityFloors.LSD,
		},
		MaxInputAmount:    func(token common.Address) *uint256.Int { return w.maxInputAmount(ctx, token) },
		V3EstimatedMargin: w.arbCfg.V3EstimatedMargin,
		BaseTokens:        w.baseTokens,
		BlockNumber:       blockNumber,
		Now:               time.Now(),
	}
}

// maxInputAmount converts the chain's configured max-trade-USD limit into a
// raw token amount for token, or nil if no USD price is available (spec.md
// §3: "bounded by min(chain-configured max trade USD, liquidity-proportional
// cap)").
func (w *ChainWorker) maxInputAmount(ctx context.Context, token common.Address) *uint256.Int {
	if w.cfg.MaxTradeUSD <= 0 {
		return nil
	}
	price, ok := w.tokenPrice(ctx, token)
	if !ok || price.IsZero() {
		return nil
	}
	priceFloat, _ := price.Float64()
	if priceFloat <= 0 {
		return nil
	}
	decimals := w.tokenDecimals(token)
	maxTokens := w.cfg.MaxTradeUSD / priceFloat * math.Pow(10, float64(decimals))
	return detect.FromFloat64(maxTokens)
}

// buildGraph converts the chainfeed snapshot into a pricegraph.Graph, one
// directed edge pair per pool (spec.md §4.2/§4.4). PairKey is symbol-keyed
// but PoolSnapshot already carries the pool's two token addresses directly,
// so graph construction never needs to resolve symbols back to addresses.
//
// Each pair is registered with the scan-frequency prioritizer on first sight
// (always included that block, so a brand-new pair is never missed) and
// gated by it on every later block (spec.md §4.14): a pair due this block
// contributes its edges as usual, a pair not due is simply left out of this
// block's graph, so the detector pass underneath never even sees it.
func (w *ChainWorker) buildGraph(ctx context.Context, pm chainfeedDomain.PriceMap, blockNumber uint64) *pricegraph.Graph {
	g := pricegraph.New()
	now := time.Now()
	for pair, byDex := range pm {
		key := string(pair)
		_, tracked := w.prioritizer.TierOf(key)
		if !tracked {
			for _, snap := range byDex {
				w.prioritizer.Register(key, 0, w.estimateLiquidityUSD(ctx, snap), now)
				break
			}
		}
		if tracked && !w.prioritizer.ShouldScan(key, blockNumber) {
			continue
		}
		for _, snap := range byDex {
			w.upsertSnapshot(ctx, g, snap)
		}
	}
	return g
}

// estimateLiquidityUSD values a pool snapshot's reserves in USD for
// prioritizer tier classification, without needing the detector pass that
// would otherwise be the only place liquidity gets costed.
func (w *ChainWorker) estimateLiquidityUSD(ctx context.Context, snap chainfeedDomain.PoolSnapshot) float64 {
	if config.DEXFamily(snap.Family) == config.FamilyConcentratedV3 {
		if snap.SqrtPriceX96 == nil || snap.Liquidity == nil {
			return 0
		}
		reserve0, reserve1 := v3VirtualReserves(snap.SqrtPriceX96, snap.Liquidity)
		return w.poolLiquidityUSD(ctx, snap.Token0, snap.Token1, reserve0, reserve1)
	}
	if snap.Reserve0 == nil || snap.Reserve1 == nil {
		return 0
	}
	return w.poolLiquidityUSD(ctx, snap.Token0, snap.Token1, snap.Reserve0, snap.Reserve1)
}

func (w *ChainWorker) upsertSnapshot(ctx context.Context, g *pricegraph.Graph, snap chainfeedDomain.PoolSnapshot) {
	if config.DEXFamily(snap.Family) == config.FamilyConcentratedV3 {
		w.upsertV3(ctx, g, snap)
		return
	}
	w.upsertV2(ctx, g, snap)
}

func (w *ChainWorker) upsertV2(ctx context.Context, g *pricegraph.Graph, snap chainfeedDomain.PoolSnapshot) {
	if snap.Reserve0 == nil || snap.Reserve1 == nil {
		return
	}
	fee := ammmath.NewFeeNumerator(snap.SwapFee)
	liqUSD := w.poolLiquidityUSD(ctx, snap.Token0, snap.Token1, snap.Reserve0, snap.Reserve1)

	g.Upsert(&pricegraph.Edge{
		From: snap.Token0, To: snap.Token1, DEXName: snap.DEXName,
		Quoter:       &pricegraph.V2Quoter{ReserveIn: snap.Reserve0, ReserveOut: snap.Reserve1, Fee: fee},
		BlockNumber:  snap.BlockNumber,
		LiquidityUSD: liqUSD,
	})
	g.Upsert(&pricegraph.Edge{
		From: snap.Token1, To: snap.Token0, DEXName: snap.DEXName,
		Quoter:       &pricegraph.V2Quoter{ReserveIn: snap.Reserve1, ReserveOut: snap.Reserve0, Fee: fee},
		BlockNumber:  snap.BlockNumber,
		LiquidityUSD: liqUSD,
	})
}

func (w *ChainWorker) upsertV3(ctx context.Context, g *pricegraph.Graph, snap chainfeedDomain.PoolSnapshot) {
	if snap.SqrtPriceX96 == nil || snap.Liquidity == nil {
		return
	}
	fee := ammmath.FeePips(snap.FeeTier)
	reserve0, reserve1 := v3VirtualReserves(snap.SqrtPriceX96, snap.Liquidity)
	liqUSD := w.poolLiquidityUSD(ctx, snap.Token0, snap.Token1, reserve0, reserve1)

	g.Upsert(&pricegraph.Edge{
		From: snap.Token0, To: snap.Token1, DEXName: snap.DEXName,
		Quoter:       &pricegraph.V3Quoter{SqrtPriceX96: snap.SqrtPriceX96, Liquidity: snap.Liquidity, ZeroForOne: true, Fee: fee},
		BlockNumber:  snap.BlockNumber,
		LiquidityUSD: liqUSD,
	})
	g.Upsert(&pricegraph.Edge{
		From: snap.Token1, To: snap.Token0, DEXName: snap.DEXName,
		Quoter:       &pricegraph.V3Quoter{SqrtPriceX96: snap.SqrtPriceX96, Liquidity: snap.Liquidity, ZeroForOne: false, Fee: fee},
		BlockNumber:  snap.BlockNumber,
		LiquidityUSD: liqUSD,
	})
}

// v3VirtualReserves approximates a concentrated-liquidity position's
// token0/token1 reserves at the current tick (reserve0 = L/sqrtP, reserve1
// = L*sqrtP), for liquidity-USD sizing only — the exact swap math stays in
// ammmath.V3AmountOut, never this approximation.
func v3VirtualReserves(sqrtPriceX96, liquidity *uint256.Int) (*uint256.Int, *uint256.Int) {
	sqrtP := detect.ToFloat64(sqrtPriceX96) / q96
	if sqrtP <= 0 {
		return uint256.NewInt(0), uint256.NewInt(0)
	}
	l := detect.ToFloat64(liquidity)
	return detect.FromFloat64(l / sqrtP), detect.FromFloat64(l * sqrtP)
}

func (w *ChainWorker) poolLiquidityUSD(ctx context.Context, token0, token1 common.Address, reserve0, reserve1 *uint256.Int) float64 {
	price0, ok0 := w.tokenPrice(ctx, token0)
	price1, ok1 := w.tokenPrice(ctx, token1)
	return reserveUSD(reserve0, w.tokenDecimals(token0), price0, ok0) +
		reserveUSD(reserve1, w.tokenDecimals(token1), price1, ok1)
}

func reserveUSD(amount *uint256.Int, decimals uint8, priceUSD decimal.Decimal, ok bool) float64 {
	if !ok || amount == nil {
		return 0
	}
	whole := detect.ToFloat64(amount) / math.Pow(10, float64(decimals))
	f, _ := priceUSD.Float64()
	return whole * f
}

func (w *ChainWorker) tokenPrice(ctx context.Context, token common.Address) (decimal.Decimal, bool) {
	if w.oracle == nil {
		return decimal.Zero, false
	}
	return w.oracle.USDPrice(ctx, w.cfg.ChainID, token)
}

func (w *ChainWorker) tokenDecimals(token common.Address) uint8 {
	if w.assets == nil {
		return 18
	}
	a, ok := w.assets.GetToken(w.cfg.ChainID, token)
	if !ok {
		return 18
	}
	return a.Decimals()
}

// score prices and ranks one opportunity. Round-trip variants (two-dex,
// triangular, multi-hop, v2v3) carry an InputAmount/GrossProfit the profit
// model can cost directly; informational signals (stablecoin depeg, LSD
// deviation, JIT) carry neither, so they are scored from their own
// magnitude instead (spec.md §3: "Extra carries variant-specific fields
// that don't generalize across variants").
func (w *ChainWorker) score(ctx context.Context, opp detect.Opportunity, block *blockchainDomain.Block, gasPrice *blockchainDomain.GasPrice) domain.RankedOpportunity {
	if opp.InputAmount != nil && !opp.InputAmount.IsZero() && opp.GrossProfit != nil && len(opp.Path) > 0 {
		return w.priceOpportunity(ctx, opp, block, gasPrice)
	}
	return w.scoreSignal(opp)
}

func (w *ChainWorker) priceOpportunity(ctx context.Context, opp detect.Opportunity, block *blockchainDomain.Block, gasPrice *blockchainDomain.GasPrice) domain.RankedOpportunity {
	baseToken := opp.Path[0]
	baseDecimals := w.tokenDecimals(baseToken)
	baseUSD, _ := w.tokenPrice(ctx, baseToken)
	nativeUSD, _ := w.tokenPrice(ctx, w.wrappedNative)

	hopCount := len(opp.DEXes)
	tradeValueUSD := rawToDecimal(opp.InputAmount, baseDecimals).Mul(baseUSD)

	gasUnits := w.cfg.Gas.GasUnitsSwap * uint64(hopCount)
	if gasUnits == 0 {
		gasUnits = 150_000 * uint64(hopCount)
	}

	input := profitmodel.Input{
		GrossProfitBaseToken: rawToDecimal(opp.GrossProfit, baseDecimals),
		BaseTokenUSD:         baseUSD,
		TradeValueUSD:        tradeValueUSD,
		Gas: profitmodel.GasEstimate{
			GasUnits:    gasUnits,
			GasPriceWei: gasPrice.Wei(),
			IsL2:        w.cfg.Gas.IsL2WithL1Fee,
			TxSizeBytes: 200 + 100*hopCount,
		},
		NativeTokenUSD: nativeUSD,
		Tier:           w.slippageTier(baseToken),
		HopCount:       hopCount,
		UsesFlashLoan:  w.cfg.FlashLoan.Available(),
		FlashLoan: profitmodel.FlashLoanPolicy{
			Available: w.cfg.FlashLoan.Available(),
			FeeRate:   decimal.NewFromFloat(w.cfg.FlashLoan.FeeBps / 10_000),
		},
	}

	result, err := profitmodel.Evaluate(input)
	if err != nil {
		w.log.Warn(ctx, "chain worker: profit model evaluation failed", "chain", w.cfg.Name, "error", err)
		return w.scoreSignal(opp)
	}

	netUSD, _ := result.NetUSD.Float64()
	gasUSD, _ := result.GasUSD.Float64()
	tradeValFloat, _ := tradeValueUSD.Float64()

	mevResult := mevsim.Evaluate(mevsim.Input{
		NetProfitUSD:           netUSD,
		TradeValueUSD:          tradeValFloat,
		GasCostUSD:             gasUSD,
		GasPricePercentile:     w.gasPricePercentile(gasPrice),
		BlocksSinceOpportunity: int(block.Number - opp.BlockNumber),
		ChainBlockTimeMs:       w.cfg.BlockTime().Milliseconds(),
		PriceStability:         1.0,
	})

	maxAge := time.Duration(w.arbCfg.StalenessBoundBlocks) * w.cfg.BlockTime()
	sub := scorer.SubScores{
		Profit:               scorer.ProfitSubScore(netUSD, w.cfg.MaxTradeUSD),
		Liquidity:            scorer.LiquiditySubScore(opp.MinLiquidityUSD, w.cfg.MaxTradeUSD*10),
		ExecutionProbability: mevResult.SuccessProbability,
		TimeFreshness:        scorer.TimeFreshnessSubScore(time.Since(opp.Timestamp), maxAge),
		TokenQuality:         scorer.TokenQualitySubScore(tokenQualityOf(input.Tier)),
	}
	score, tier := scorer.Score(sub, scorer.DefaultWeights())

	opp.NetProfitUSD = result.NetUSD
	opp.GasCostUSD = result.GasUSD
	opp.Score = score
	opp.Tier = tier
	opp.Recommendation = mevResult.Recommendation
	opp.MEV = mevResult

	return domain.RankedOpportunity{Opportunity: opp, ChainID: w.cfg.ChainID, ChainName: w.cfg.Name}
}

// scoreSignal scores an opportunity with no simulated trade (stablecoin
// depeg, LSD deviation, JIT) from its own reported magnitude rather than
// from the profit model, since none of these carry an input/output amount
// to cost.
func (w *ChainWorker) scoreSignal(opp detect.Opportunity) domain.RankedOpportunity {
	magnitude := 0.3
	if dev, ok := opp.Extra["deviation_percent"].(float64); ok {
		magnitude = clamp01(dev / 2.0) // a 2% deviation saturates the signal-strength score
	}
	maxAge := time.Duration(w.arbCfg.StalenessBoundBlocks) * w.cfg.BlockTime()
	sub := scorer.SubScores{
		Profit:               magnitude,
		Liquidity:            scorer.LiquiditySubScore(opp.MinLiquidityUSD, w.cfg.MaxTradeUSD*10),
		ExecutionProbability: 0.5,
		TimeFreshness:        scorer.TimeFreshnessSubScore(time.Since(opp.Timestamp), maxAge),
		TokenQuality:         scorer.TokenQualitySubScore(scorer.TokenQualityMid),
	}
	score, tier := scorer.Score(sub, scorer.DefaultWeights())

	opp.Score = score
	opp.Tier = tier
	opp.Recommendation = mevsim.RecommendEvaluate

	return domain.RankedOpportunity{Opportunity: opp, ChainID: w.cfg.ChainID, ChainName: w.cfg.Name}
}

func (w *ChainWorker) slippageTier(token common.Address) profitmodel.Tier {
	switch {
	case w.stablecoins[token]:
		return profitmodel.TierStableStable
	case token == w.wrappedNative:
		return profitmodel.TierNative
	case w.baseTokenSet[token]:
		return profitmodel.TierBlueChip
	default:
		return profitmodel.TierVolatile
	}
}

func tokenQualityOf(tier profitmodel.Tier) scorer.TokenQualityTier {
	switch tier {
	case profitmodel.TierStableStable:
		return scorer.TokenQualityStable
	case profitmodel.TierNative, profitmodel.TierBlueChip:
		return scorer.TokenQualityBlueChip
	case profitmodel.TierVolatile:
		return scorer.TokenQualityMid
	default:
		return scorer.TokenQualityLong
	}
}

// gasPricePercentile estimates where the current gas price sits relative to
// the chain's configured ceiling, as a cheap stand-in for a rolling
// gas-price distribution (spec.md §4.12 "this tx's gas price vs. recent
// blocks").
func (w *ChainWorker) gasPricePercentile(gasPrice *blockchainDomain.GasPrice) float64 {
	if w.cfg.Gas.MaxGasPriceGwei <= 0 {
		return 0.5
	}
	return clamp01(gasPrice.Gwei() / w.cfg.Gas.MaxGasPriceGwei)
}

func rawToDecimal(amount *uint256.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount.ToBig(), -int32(decimals))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
