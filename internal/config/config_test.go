package config_test

import (
	"testing"
	"time"

	"github.com/fd1az/arbitrage-bot/internal/config"
)

func validChain() config.ChainConfig {
	return config.ChainConfig{
		Enabled:     true,
		ChainID:     1,
		Name:        "ethereum",
		HTTPURL:     "https://rpc.example.com",
		NativeToken: config.TokenConfig{Symbol: "ETH", Decimals: 18},
		Tokens: []config.TokenConfig{
			{Symbol: "WETH", Address: "0x000000000000000000000000000000000000dEaD", Decimals: 18},
			{Symbol: "USDC", Address: "0x0000000000000000000000000000000000000001", Decimals: 6},
		},
		BaseTokens: []string{"WETH"},
		DEXes: []config.DEXConfig{
			{Name: "uniswap-v2", Family: config.FamilyConstantProductV2, SwapFee: 0.003},
		},
		Pools: []config.PoolConfig{
			{Address: "0x0000000000000000000000000000000000000002", DEX: "uniswap-v2", Token0: "WETH", Token1: "USDC", SwapFee: 0.003},
		},
	}
}

func TestChainConfigValidate_Valid(t *testing.T) {
	cc := validChain()
	if err := cc.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestChainConfigValidate_DisabledSkipsValidation(t *testing.T) {
	cc := config.ChainConfig{Enabled: false}
	if err := cc.Validate(); err != nil {
		t.Fatalf("disabled chain should skip validation, got: %v", err)
	}
}

func TestChainConfigValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.ChainConfig)
	}{
		{"missing chain id", func(cc *config.ChainConfig) { cc.ChainID = 0 }},
		{"missing rpc urls", func(cc *config.ChainConfig) { cc.HTTPURL, cc.WebSocketURL = "", "" }},
		{"native decimals out of range", func(cc *config.ChainConfig) { cc.NativeToken.Decimals = 19 }},
		{"bad wrapped native address", func(cc *config.ChainConfig) { cc.WrappedNative = "not-an-address" }},
		{"bad token address", func(cc *config.ChainConfig) { cc.Tokens[0].Address = "nope" }},
		{"base token not in table", func(cc *config.ChainConfig) { cc.BaseTokens = []string{"MISSING"} }},
		{"dex fee out of range", func(cc *config.ChainConfig) { cc.DEXes[0].SwapFee = 1.0 }},
		{"unknown dex family", func(cc *config.ChainConfig) { cc.DEXes[0].Family = "made-up" }},
		{"pool bad address", func(cc *config.ChainConfig) { cc.Pools[0].Address = "nope" }},
		{"pool unknown dex", func(cc *config.ChainConfig) { cc.Pools[0].DEX = "sushiswap" }},
		{"pool token not in table", func(cc *config.ChainConfig) { cc.Pools[0].Token0 = "MISSING" }},
		{"bad multicall address", func(cc *config.ChainConfig) { cc.MulticallAddress = "nope" }},
		{"flash loan fee out of range", func(cc *config.ChainConfig) { cc.FlashLoan.FeeBps = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := validChain()
			tt.modify(&cc)
			if err := cc.Validate(); err == nil {
				t.Errorf("expected validation error for %s, got nil", tt.name)
			}
		})
	}
}

func TestChainConfigValidate_LSDAsset(t *testing.T) {
	cc := validChain()
	cc.LSDAssets = []config.LSDAssetConfig{
		{Token: "WETH", Underlying: "USDC", RateContract: "0x0000000000000000000000000000000000000003", RateDecimals: 18},
	}
	if err := cc.Validate(); err != nil {
		t.Fatalf("expected valid lsd asset, got: %v", err)
	}

	cc.LSDAssets[0].Token = "MISSING"
	if err := cc.Validate(); err == nil {
		t.Error("expected error for lsd asset with unknown token")
	}
}

func TestChainConfig_BlockTime(t *testing.T) {
	cc := config.ChainConfig{}
	if got := cc.BlockTime(); got != 12*time.Second {
		t.Errorf("expected default 12s block time, got %v", got)
	}

	cc.BlockTimeMs = 2000
	if got := cc.BlockTime(); got != 2*time.Second {
		t.Errorf("expected configured 2s block time, got %v", got)
	}
}

func TestChainConfig_TokenBySymbol(t *testing.T) {
	cc := validChain()

	tok, ok := cc.TokenBySymbol("USDC")
	if !ok {
		t.Fatal("expected to find USDC")
	}
	if tok.Decimals != 6 {
		t.Errorf("expected 6 decimals, got %d", tok.Decimals)
	}

	if _, ok := cc.TokenBySymbol("MISSING"); ok {
		t.Error("expected MISSING token lookup to fail")
	}
}

func TestChainConfig_DEXByName(t *testing.T) {
	cc := validChain()

	dex, ok := cc.DEXByName("uniswap-v2")
	if !ok {
		t.Fatal("expected to find uniswap-v2")
	}
	if dex.Family != config.FamilyConstantProductV2 {
		t.Errorf("expected constant-product-v2 family, got %s", dex.Family)
	}

	if _, ok := cc.DEXByName("missing-dex"); ok {
		t.Error("expected missing-dex lookup to fail")
	}
}

func TestConfigValidate_RequiresAtLeastOneChain(t *testing.T) {
	c := &config.Config{}
	if err := c.Validate(); err == nil {
		t.Error("expected error when no chains are configured")
	}
}

func TestConfigValidate_PropagatesChainError(t *testing.T) {
	bad := validChain()
	bad.ChainID = 0
	c := &config.Config{Chains: []config.ChainConfig{bad}}
	if err := c.Validate(); err == nil {
		t.Error("expected chain validation error to propagate")
	}
}
