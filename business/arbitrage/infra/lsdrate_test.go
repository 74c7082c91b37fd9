package infra

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

func TestBuildRateABI_NoArg(t *testing.T) {
	parsedABI, err := buildRateABI("getExchangeRate", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := parsedABI.Methods["getExchangeRate"]; !ok {
		t.Fatal("expected getExchangeRate method in parsed ABI")
	}
	if len(parsedABI.Methods["getExchangeRate"].Inputs) != 0 {
		t.Error("expected no-arg method to have zero inputs")
	}
}

func TestBuildRateABI_WithArg(t *testing.T) {
	parsedABI, err := buildRateABI("getPooledEthByShares", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	method, ok := parsedABI.Methods["getPooledEthByShares"]
	if !ok {
		t.Fatal("expected getPooledEthByShares method in parsed ABI")
	}
	if len(method.Inputs) != 1 {
		t.Errorf("expected one input, got %d", len(method.Inputs))
	}
}

func TestPow10(t *testing.T) {
	cases := map[uint8]float64{
		0:  1,
		1:  10,
		6:  1_000_000,
		18: 1e18,
	}
	for n, want := range cases {
		if got := pow10(n); got != want {
			t.Errorf("pow10(%d) = %v, want %v", n, got, want)
		}
	}
}

func lsdChain() config.ChainConfig {
	return config.ChainConfig{
		Name: "ethereum",
		Tokens: []config.TokenConfig{
			{Symbol: "stETH", Address: "0x0000000000000000000000000000000000dEaD", Decimals: 18},
			{Symbol: "rETH", Address: "0x0000000000000000000000000000000000cafe", Decimals: 18},
		},
		LSDAssets: []config.LSDAssetConfig{
			{
				Token:        "stETH",
				RateContract: "0x0000000000000000000000000000000000beef",
				RateMethod:   "getPooledEthByShares",
				RateArg:      "1000000000000000000",
				RateDecimals: 18,
			},
			{
				Token: "rETH",
				// RateContract/RateMethod left empty: should be skipped, not error.
			},
		},
	}
}

func TestNewOnChainLSDRateProvider_SkipsUnconfiguredAssets(t *testing.T) {
	provider, err := NewOnChainLSDRateProvider(nil, time.Minute, lsdChain(), logger.Noop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("expected exactly one configured rate call, got %d", len(provider.calls))
	}
}

func TestOnChainLSDRateProvider_ProtocolRate_MissForUnconfiguredToken(t *testing.T) {
	provider, err := NewOnChainLSDRateProvider(nil, time.Minute, lsdChain(), logger.Noop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// rETH has no RateContract/RateMethod, so it never entered the call map
	// and ProtocolRate must report a miss without ever touching p.client.
	rETH := common.HexToAddress("0x0000000000000000000000000000000000cafe")
	if _, ok := provider.ProtocolRate(context.Background(), rETH); ok {
		t.Error("expected a miss for a token with no configured rate call")
	}
}

func TestNewOnChainLSDRateProvider_InvalidRateArg(t *testing.T) {
	chain := lsdChain()
	chain.LSDAssets[0].RateArg = "not-a-number"

	if _, err := NewOnChainLSDRateProvider(nil, time.Minute, chain, logger.Noop()); err == nil {
		t.Error("expected an error for a non-numeric rate_arg")
	}
}
