// Package main is the entry point for the multi-chain arbitrage scanner.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	arbitrageApp "github.com/fd1az/arbitrage-bot/business/arbitrage/app"
	arbitrageInfra "github.com/fd1az/arbitrage-bot/business/arbitrage/infra"
	blockchainApp "github.com/fd1az/arbitrage-bot/business/blockchain/app"
	blockchainEthereum "github.com/fd1az/arbitrage-bot/business/blockchain/infra/ethereum"
	chainfeedApp "github.com/fd1az/arbitrage-bot/business/chainfeed/app"
	chainfeedEthereum "github.com/fd1az/arbitrage-bot/business/chainfeed/infra/ethereum"
	"github.com/fd1az/arbitrage-bot/internal/apm"
	"github.com/fd1az/arbitrage-bot/internal/asset"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/detect/lsd"
	"github.com/fd1az/arbitrage-bot/internal/eventbus"
	"github.com/fd1az/arbitrage-bot/internal/health"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/metrics"
	"github.com/fd1az/arbitrage-bot/pkg/ui"
)

// defaultRateLimitRPM backs ChainConfig.RateLimitRPM when a chain leaves it
// unset (spec.md §6: "token bucket, default 300 rpm").
const defaultRateLimitRPM = 300

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbitrage-bot %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Arbitrage.TUIMode = tuiMode

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting multi-chain arbitrage scanner",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	var reporter arbitrageApp.Reporter
	if tuiMode {
		reporter = arbitrageInfra.NewTUIReporter()
	} else {
		reporter = arbitrageInfra.NewConsoleReporter()
	}

	assets := asset.NewRegistry()
	oracle, err := arbitrageInfra.NewCoinGeckoPriceOracle(arbitrageInfra.DefaultCoinGeckoConfig(), cfg.Chains, log)
	if err != nil {
		return fmt.Errorf("failed to build coingecko price oracle: %w", err)
	}
	coordinator := arbitrageApp.NewCoordinator(cfg.Arbitrage, log)

	for _, chain := range cfg.Chains {
		if !chain.Enabled {
			continue
		}
		worker, err := buildChainWorker(chain, cfg.Arbitrage, assets, oracle, reporter, log)
		if err != nil {
			log.Error(ctx, "failed to build chain worker, skipping chain", "chain", chain.Name, "error", err)
			continue
		}
		coordinator.Register(chain.Name, worker)
	}

	if tuiMode {
		startFunc := func() error {
			if err := reporter.Start(ctx); err != nil {
				return fmt.Errorf("failed to start reporter: %w", err)
			}
			coordinator.Start(ctx)
			return nil
		}
		stopFunc := func() {
			_ = reporter.Stop()
		}
		return runTUI(ctx, startFunc, stopFunc)
	}

	if err := reporter.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reporter: %w", err)
	}
	log.Info(ctx, "all chain workers registered, beginning arbitrage detection")
	coordinator.Start(ctx)

	<-ctx.Done()
	log.Info(ctx, "shutting down")
	coordinator.Wait()
	return reporter.Stop()
}

// buildChainWorker wires one chain's full pipeline: a dialed RPC client for
// batched reads, a block subscriber and gas oracle, a chainfeed service fed
// by both a Multicall3 bulk poll and a live log subscription, an optional
// on-chain LSD rate provider, and the ChainWorker that ties detection,
// costing and reporting together for this chain (spec.md §4.15).
func buildChainWorker(
	chain config.ChainConfig,
	arbCfg config.ArbitrageConfig,
	assets *asset.Registry,
	oracle arbitrageApp.TokenPriceOracle,
	reporter arbitrageApp.Reporter,
	log logger.LoggerInterface,
) (*arbitrageApp.ChainWorker, error) {
	registerChainAssets(chain, assets)

	rateLimitRPM := chain.RateLimitRPM
	if rateLimitRPM <= 0 {
		rateLimitRPM = defaultRateLimitRPM
	}

	rpcURL := chain.HTTPURL
	if rpcURL == "" {
		rpcURL = chain.WebSocketURL
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc for %s: %w", chain.Name, err)
	}

	subscriberCfg := blockchainEthereum.DefaultSubscriberConfig(chain.WebSocketURL, chain.HTTPURL)
	subscriber, err := blockchainEthereum.NewSubscriber(subscriberCfg, log)
	if err != nil {
		return nil, fmt.Errorf("build subscriber for %s: %w", chain.Name, err)
	}

	gasOracleCfg := blockchainEthereum.DefaultGasOracleConfig(rpcURL)
	gasOracle, err := blockchainEthereum.NewGasOracle(gasOracleCfg, log)
	if err != nil {
		return nil, fmt.Errorf("build gas oracle for %s: %w", chain.Name, err)
	}
	if err := gasOracle.Connect(context.Background()); err != nil {
		log.Warn(context.Background(), "gas oracle connect failed, will retry lazily", "chain", chain.Name, "error", err)
	}

	blockchainService := blockchainApp.NewBlockchainService(subscriber, gasOracle)

	pools := poolRefsFor(chain)

	bulkReader, err := chainfeedEthereum.NewBulkReader(client, chain.MulticallAddress, rateLimitRPM, log)
	if err != nil {
		return nil, fmt.Errorf("build bulk reader for %s: %w", chain.Name, err)
	}

	bus := eventbus.New(arbCfg.DebounceWindow, 256, log)

	feed := chainfeedApp.NewService(chain.Name, bulkReader, bus, pools, arbCfg.RepollInterval, arbCfg.QuoteCacheTTL, log)

	logSubscriberCfg := chainfeedEthereum.DefaultLogSubscriberConfig(chain.WebSocketURL, chain.HTTPURL)
	logSubscriberCfg.RateLimitRPM = rateLimitRPM
	logSubscriber := chainfeedEthereum.NewLogSubscriber(
		logSubscriberCfg,
		poolAddresses(pools),
		bus,
		log,
	)
	go func() {
		if err := logSubscriber.Start(context.Background()); err != nil {
			log.Error(context.Background(), "log subscriber failed to start", "chain", chain.Name, "error", err)
		}
	}()

	var rates lsd.ProtocolRateProvider
	if len(chain.LSDAssets) > 0 {
		provider, err := arbitrageInfra.NewOnChainLSDRateProvider(client, arbCfg.QuoteCacheTTL, chain, log)
		if err != nil {
			log.Warn(context.Background(), "lsd rate provider unavailable for chain, lsd detector will skip its assets", "chain", chain.Name, "error", err)
		} else {
			rates = provider
		}
	}

	worker := arbitrageApp.NewChainWorker(chain, arbCfg, blockchainService, feed, feed, assets, oracle, rates, reporter, log)
	return worker, nil
}

// registerChainAssets registers this chain's native coin and every
// configured token into the shared asset registry, so ChainWorker's
// decimals/symbol lookups never miss for a configured token.
func registerChainAssets(chain config.ChainConfig, assets *asset.Registry) {
	nativeID := asset.NewNativeAssetID(chain.ChainID)
	if !assets.Has(nativeID) {
		symbol := chain.NativeToken.Symbol
		if symbol == "" {
			symbol = "ETH"
		}
		assets.Register(asset.NewAsset(nativeID, symbol, chain.NativeToken.Decimals))
	}
	for _, t := range chain.Tokens {
		if !common.IsHexAddress(t.Address) {
			continue
		}
		id := asset.NewTokenAssetID(chain.ChainID, common.HexToAddress(t.Address))
		if assets.Has(id) {
			continue
		}
		assets.Register(asset.NewAsset(id, t.Symbol, t.Decimals))
	}
}

// poolRefsFor converts a chain's configured pool list into the PoolRefs
// chainfeed needs to poll and subscribe.
func poolRefsFor(chain config.ChainConfig) []chainfeedApp.PoolRef {
	out := make([]chainfeedApp.PoolRef, 0, len(chain.Pools))
	for _, p := range chain.Pools {
		dex, ok := chain.DEXByName(p.DEX)
		if !ok {
			continue
		}
		out = append(out, chainfeedApp.PoolRef{
			Pool:    common.HexToAddress(p.Address),
			DEXName: p.DEX,
			Family:  string(dex.Family),
			Token0:  p.Token0,
			Token1:  p.Token1,
			FeeTier: p.FeeTier,
			SwapFee: p.SwapFee,
		})
	}
	return out
}

func poolAddresses(pools []chainfeedApp.PoolRef) []common.Address {
	out := make([]common.Address, len(pools))
	for i, p := range pools {
		out[i] = p.Pool
	}
	return out
}

func runTUI(ctx context.Context, startFunc func() error, stopFunc func()) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		stopFunc()
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
