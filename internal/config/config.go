// Package config provides configuration loading and validation for the
// multi-chain arbitrage detector.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/fd1az/arbitrage-bot/internal/blocktime"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chains    []ChainConfig   `mapstructure:"chains"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// TokenConfig describes one token tracked on a chain.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
	// CoinGeckoID is the token's id on the CoinGecko simple-price API (e.g.
	// "weth", "usd-coin"). Empty means no USD reference is available for
	// this token and TokenPriceOracle.USDPrice will report a miss.
	CoinGeckoID string `mapstructure:"coingecko_id,omitempty"`
}

// DEXFamily identifies the pricing formula family a DEX descriptor uses.
type DEXFamily string

const (
	FamilyConstantProductV2 DEXFamily = "constant-product-v2"
	FamilyConcentratedV3    DEXFamily = "concentrated-v3"
	FamilySolidly           DEXFamily = "solidly"
	FamilyStableCurve       DEXFamily = "stable-curve"
	FamilyBalancer          DEXFamily = "balancer"
)

// DEXConfig describes one DEX deployment on a chain.
type DEXConfig struct {
	Name           string    `mapstructure:"name"`
	Family         DEXFamily `mapstructure:"family"`
	SwapFee        float64   `mapstructure:"swap_fee"` // fractional, e.g. 0.003
	FactoryAddress string    `mapstructure:"factory_address"`
	RouterAddress  string    `mapstructure:"router_address"`
	QuoterAddress  string    `mapstructure:"quoter_address,omitempty"` // v3 only
	FeeTiers       []int     `mapstructure:"fee_tiers,omitempty"`      // v3 only, hundredths of a bip
}

// LSDAssetConfig describes one liquid-staking derivative tracked for
// protocol-rate-vs-DEX-price deviation (spec.md §4.9).
type LSDAssetConfig struct {
	Token         string        `mapstructure:"token"`      // symbol, must exist in Tokens
	Underlying    string        `mapstructure:"underlying"` // symbol, must exist in Tokens
	RebaseHourUTC int           `mapstructure:"rebase_hour_utc"`
	RebaseWindow  time.Duration `mapstructure:"rebase_window"`

	// RateContract is the on-chain address exposing the protocol's
	// reported exchange rate (e.g. stETH's withdrawal queue, rETH's
	// RocketTokenRETH, a vault's own address for ERC-4626 shares).
	RateContract string `mapstructure:"rate_contract"`
	// RateMethod is the view function name to call, e.g.
	// "getPooledEthByShares", "getExchangeRate", "convertToAssets".
	RateMethod string `mapstructure:"rate_method"`
	// RateArg is the decimal-string argument passed to RateMethod (e.g.
	// "1000000000000000000" for "one share"). Empty means RateMethod
	// takes no argument.
	RateArg string `mapstructure:"rate_arg,omitempty"`
	// RateDecimals is the decimal scale of RateMethod's uint256 return
	// value, almost always 18.
	RateDecimals uint8 `mapstructure:"rate_decimals"`
}

// PoolConfig describes one concrete pool deployment chainfeed tracks: its
// address, which DEX/family it belongs to, the pair it trades, and the fee
// parameter the pricing formula needs (swap_fee for v2/solidly-family
// pools, fee_tier for concentrated-liquidity ones).
type PoolConfig struct {
	Address string  `mapstructure:"address"`
	DEX     string  `mapstructure:"dex"`    // must match a DEXConfig.Name
	Token0  string  `mapstructure:"token0"` // symbol, must exist in Tokens
	Token1  string  `mapstructure:"token1"` // symbol, must exist in Tokens
	FeeTier int     `mapstructure:"fee_tier,omitempty"`
	SwapFee float64 `mapstructure:"swap_fee,omitempty"`
}

// FlashLoanConfig describes the flash-loan provider used to fund arbitrage
// input amounts on a chain.
type FlashLoanConfig struct {
	Provider string  `mapstructure:"provider"` // "" means none configured
	FeeBps   float64 `mapstructure:"fee_bps"`  // 0 for Balancer-style vaults
}

// Available reports whether a flash-loan provider is actually configured.
func (f FlashLoanConfig) Available() bool {
	return f.Provider != ""
}

// GasConfig holds chain gas parameters.
type GasConfig struct {
	MaxGasPriceGwei float64 `mapstructure:"max_gas_price_gwei"`
	GasUnitsSwap    uint64  `mapstructure:"gas_units_swap"`
	IsL2WithL1Fee   bool    `mapstructure:"is_l2_with_l1_fee"`
}

// LiquidityFloorConfig holds per-detector minimum hop-liquidity admissibility
// thresholds in USD (spec.md §4.2: "the threshold differs by detector;
// triangular typically $2-10k; multi-hop $100-1k; stablecoin higher"). A
// zero field lets the detector fall back to its own spec default.
type LiquidityFloorConfig struct {
	CrossDEX   float64 `mapstructure:"cross_dex_usd"`
	Triangular float64 `mapstructure:"triangular_usd"`
	MultiHop   float64 `mapstructure:"multi_hop_usd"`
	FeeTier    float64 `mapstructure:"fee_tier_usd"`
	Stable     float64 `mapstructure:"stable_usd"`
	LSD        float64 `mapstructure:"lsd_usd"`
}

// ChainConfig is the per-chain input record (spec.md §6).
type ChainConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	ChainID       uint64        `mapstructure:"chain_id"`
	Name          string        `mapstructure:"name"`
	BlockTimeMs   int           `mapstructure:"block_time_ms"`
	WebSocketURL  string        `mapstructure:"websocket_url"`
	HTTPURL       string        `mapstructure:"http_url"`
	RPCEndpoints  []string      `mapstructure:"rpc_endpoints"`
	RateLimitRPM  int           `mapstructure:"rate_limit_rpm"`
	NativeToken   TokenConfig   `mapstructure:"native_token"`
	WrappedNative string        `mapstructure:"wrapped_native_address"`
	Tokens        []TokenConfig `mapstructure:"tokens"`
	BaseTokens    []string      `mapstructure:"base_tokens"` // symbols, must exist in Tokens
	DEXes         []DEXConfig   `mapstructure:"dexes"`
	Stablecoins   []string      `mapstructure:"stablecoins"`
	LSDAssets     []LSDAssetConfig `mapstructure:"lsd_assets"`
	Pools         []PoolConfig  `mapstructure:"pools"`
	MulticallAddress string     `mapstructure:"multicall_address,omitempty"`

	MinProfitPercent float64 `mapstructure:"min_profit_percent"`
	MinTradeUSD      float64 `mapstructure:"min_trade_usd"`
	MaxTradeUSD      float64 `mapstructure:"max_trade_usd"`

	LiquidityFloors LiquidityFloorConfig `mapstructure:"liquidity_floors"`

	Gas       GasConfig       `mapstructure:"gas"`
	FlashLoan FlashLoanConfig `mapstructure:"flash_loan"`
}

// BlockTime returns the configured block interval, defaulting by chain name
// the way spec.md §4.15 prescribes when block_time_ms is unset.
func (c *ChainConfig) BlockTime() time.Duration {
	if c.BlockTimeMs > 0 {
		return time.Duration(c.BlockTimeMs) * time.Millisecond
	}
	if c.Name != "" {
		return blocktime.DefaultBlockTime(c.Name)
	}
	return 12 * time.Second
}

// TokenBySymbol looks up a configured token by symbol.
func (c *ChainConfig) TokenBySymbol(symbol string) (TokenConfig, bool) {
	for _, t := range c.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return TokenConfig{}, false
}

// ArbitrageConfig holds cross-chain / ambient detection configuration shared
// across all chain workers; per-chain overrides live in ChainConfig.
type ArbitrageConfig struct {
	TUIMode               bool          `mapstructure:"-"` // set at runtime, not from config file
	DebounceWindow        time.Duration `mapstructure:"debounce_window"`
	RepollInterval        time.Duration `mapstructure:"repoll_interval"`
	QuoteCacheTTL         time.Duration `mapstructure:"quote_cache_ttl"`
	StalenessBoundBlocks  uint64        `mapstructure:"staleness_bound_blocks"`
	MaxCycleLength        int           `mapstructure:"max_cycle_length"`
	MaxCyclesVisited      int           `mapstructure:"max_cycles_visited"`
	OptimizerIterations   int           `mapstructure:"optimizer_iterations"`
	V3EstimatedMargin     float64       `mapstructure:"v3_estimated_margin"`
	CrossChainBridgeCost  float64       `mapstructure:"cross_chain_bridge_cost_usd"`
	WorkerStaggerDelay    time.Duration `mapstructure:"worker_stagger_delay"`
	WorkerRestartCooldown time.Duration `mapstructure:"worker_restart_cooldown"`
	CrashLoopThreshold    int           `mapstructure:"crash_loop_threshold"`
	CrashLoopWindow       time.Duration `mapstructure:"crash_loop_window"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "arbitragescan")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("arbitrage.debounce_window", "100ms")
	v.SetDefault("arbitrage.repoll_interval", "5s")
	v.SetDefault("arbitrage.quote_cache_ttl", "3s")
	v.SetDefault("arbitrage.staleness_bound_blocks", 2)
	v.SetDefault("arbitrage.max_cycle_length", 5)
	v.SetDefault("arbitrage.max_cycles_visited", 1000)
	v.SetDefault("arbitrage.optimizer_iterations", 15)
	v.SetDefault("arbitrage.v3_estimated_margin", 0.25)
	v.SetDefault("arbitrage.cross_chain_bridge_cost_usd", 5.0)
	v.SetDefault("arbitrage.worker_stagger_delay", "1s")
	v.SetDefault("arbitrage.worker_restart_cooldown", "5s")
	v.SetDefault("arbitrage.crash_loop_threshold", 10)
	v.SetDefault("arbitrage.crash_loop_window", "5m")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arbitragescan")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration, including every chain's ChainConfig.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}
	for i := range c.Chains {
		if err := c.Chains[i].Validate(); err != nil {
			return fmt.Errorf("chains[%d] (%s): %w", i, c.Chains[i].Name, err)
		}
	}
	return nil
}

// Validate checks a single ChainConfig against spec.md §6's invariants:
// addresses are 20-byte hex, decimals in [0,18], fees in [0,0.1], and every
// base token symbol exists in the token table.
func (cc *ChainConfig) Validate() error {
	if !cc.Enabled {
		return nil
	}
	if cc.ChainID == 0 {
		return fmt.Errorf("chain_id is required")
	}
	if cc.WebSocketURL == "" && cc.HTTPURL == "" {
		return fmt.Errorf("at least one of websocket_url or http_url is required")
	}
	if cc.NativeToken.Decimals > 18 {
		return fmt.Errorf("native_token decimals out of range [0,18]")
	}
	if cc.WrappedNative != "" && !common.IsHexAddress(cc.WrappedNative) {
		return fmt.Errorf("invalid wrapped_native_address: %s", cc.WrappedNative)
	}

	tokenSet := make(map[string]bool, len(cc.Tokens))
	for _, t := range cc.Tokens {
		if !common.IsHexAddress(t.Address) {
			return fmt.Errorf("invalid token address for %s: %s", t.Symbol, t.Address)
		}
		if t.Decimals > 18 {
			return fmt.Errorf("token %s decimals out of range [0,18]", t.Symbol)
		}
		tokenSet[t.Symbol] = true
	}
	for _, base := range cc.BaseTokens {
		if !tokenSet[base] {
			return fmt.Errorf("base token %s not present in token table", base)
		}
	}

	for _, lsd := range cc.LSDAssets {
		if !tokenSet[lsd.Token] {
			return fmt.Errorf("lsd asset token %s not present in token table", lsd.Token)
		}
		if !tokenSet[lsd.Underlying] {
			return fmt.Errorf("lsd asset underlying %s not present in token table", lsd.Underlying)
		}
		if lsd.RateContract != "" && !common.IsHexAddress(lsd.RateContract) {
			return fmt.Errorf("lsd asset %s: invalid rate_contract %s", lsd.Token, lsd.RateContract)
		}
		if lsd.RateMethod != "" && lsd.RateDecimals > 18 {
			return fmt.Errorf("lsd asset %s: rate_decimals out of range [0,18]", lsd.Token)
		}
	}

	for _, d := range cc.DEXes {
		if d.SwapFee < 0 || d.SwapFee > 0.1 {
			return fmt.Errorf("dex %s: swap_fee %.4f out of range [0,0.1]", d.Name, d.SwapFee)
		}
		switch d.Family {
		case FamilyConstantProductV2, FamilyConcentratedV3, FamilySolidly, FamilyStableCurve, FamilyBalancer:
		default:
			return fmt.Errorf("dex %s: unknown family %q", d.Name, d.Family)
		}
		if d.FactoryAddress != "" && !common.IsHexAddress(d.FactoryAddress) {
			return fmt.Errorf("dex %s: invalid factory_address", d.Name)
		}
	}

	if cc.FlashLoan.FeeBps < 0 || cc.FlashLoan.FeeBps > 1000 {
		return fmt.Errorf("flash_loan.fee_bps out of range")
	}

	dexSet := make(map[string]bool, len(cc.DEXes))
	for _, d := range cc.DEXes {
		dexSet[d.Name] = true
	}
	for _, p := range cc.Pools {
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("pool on %s/%s: invalid address %s", p.Token0, p.Token1, p.Address)
		}
		if !dexSet[p.DEX] {
			return fmt.Errorf("pool %s: dex %q not present in dexes table", p.Address, p.DEX)
		}
		if !tokenSet[p.Token0] || !tokenSet[p.Token1] {
			return fmt.Errorf("pool %s: token0/token1 must be present in token table", p.Address)
		}
	}
	if cc.MulticallAddress != "" && !common.IsHexAddress(cc.MulticallAddress) {
		return fmt.Errorf("invalid multicall_address: %s", cc.MulticallAddress)
	}

	return nil
}

// DEXByName looks up a configured DEX deployment by name.
func (c *ChainConfig) DEXByName(name string) (DEXConfig, bool) {
	for _, d := range c.DEXes {
		if d.Name == name {
			return d, true
		}
	}
	return DEXConfig{}, false
}
