package infra

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/cache"
	"github.com/fd1az/arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// rateCall is one LSD asset's resolved on-chain rate query, built once at
// construction from its LSDAssetConfig rather than parsed on every call.
type rateCall struct {
	contract common.Address
	abi      abi.ABI
	method   string
	arg      *big.Int // nil when the method takes no argument
	scale    *big.Float
}

// OnChainLSDRateProvider implements lsd.ProtocolRateProvider by calling each
// configured LSD's own rate-reporting view function (stETH's
// getPooledEthByShares, rETH's getExchangeRate, an ERC-4626 vault's
// convertToAssets, ...), grounded on the same ABI-pack/CallContract/unpack
// shape business/pricing/infra/uniswap.Provider uses for quotes. The method
// signature and decimals are data-driven (spec.md §4.9 covers many
// protocols, each with its own rate function) rather than hardcoded to one
// protocol.
type OnChainLSDRateProvider struct {
	client *ethclient.Client
	calls  map[common.Address]rateCall

	cache *cache.Cache[common.Address, float64]
	cb    *circuitbreaker.CircuitBreaker[float64]
	log   logger.LoggerInterface
}

// NewOnChainLSDRateProvider builds one rateCall per configured LSD asset
// that has a RateContract/RateMethod set; assets without one are silently
// skipped (ProtocolRate will report a miss), since not every chain's LSDs
// are onboarded with a known rate function yet.
func NewOnChainLSDRateProvider(client *ethclient.Client, cacheTTL time.Duration, chain config.ChainConfig, log logger.LoggerInterface) (*OnChainLSDRateProvider, error) {
	calls := make(map[common.Address]rateCall)

	for _, lsdCfg := range chain.LSDAssets {
		if lsdCfg.RateContract == "" || lsdCfg.RateMethod == "" {
			continue
		}
		token, ok := chain.TokenBySymbol(lsdCfg.Token)
		if !ok {
			continue
		}

		hasArg := lsdCfg.RateArg != ""
		parsedABI, err := buildRateABI(lsdCfg.RateMethod, hasArg)
		if err != nil {
			return nil, fmt.Errorf("lsd asset %s: %w", lsdCfg.Token, err)
		}

		var arg *big.Int
		if hasArg {
			arg, ok = new(big.Int).SetString(lsdCfg.RateArg, 10)
			if !ok {
				return nil, fmt.Errorf("lsd asset %s: invalid rate_arg %q", lsdCfg.Token, lsdCfg.RateArg)
			}
		}

		decimals := lsdCfg.RateDecimals
		if decimals == 0 {
			decimals = 18
		}

		calls[common.HexToAddress(token.Address)] = rateCall{
			contract: common.HexToAddress(lsdCfg.RateContract),
			abi:      parsedABI,
			method:   lsdCfg.RateMethod,
			arg:      arg,
			scale:    new(big.Float).SetFloat64(pow10(decimals)),
		}
	}

	cbCfg := circuitbreaker.DefaultConfig("lsd-rate-" + chain.Name)
	return &OnChainLSDRateProvider{
		client: client,
		calls:  calls,
		cache:  cache.New[common.Address, float64](cacheTTL),
		cb:     circuitbreaker.New[float64](cbCfg),
		log:    log,
	}, nil
}

// ProtocolRate implements lsd.ProtocolRateProvider.
func (p *OnChainLSDRateProvider) ProtocolRate(ctx context.Context, token common.Address) (float64, bool) {
	call, ok := p.calls[token]
	if !ok {
		return 0, false
	}

	if rate, ok := p.cache.Get(token); ok {
		return rate, true
	}

	rate, err := p.cb.Execute(func() (float64, error) {
		return p.call(ctx, call)
	})
	if err != nil {
		p.log.Warn(ctx, "lsd protocol rate call failed", "token", token.Hex(), "method", call.method, "error", err)
		return 0, false
	}

	p.cache.Set(token, rate)
	return rate, true
}

func (p *OnChainLSDRateProvider) call(ctx context.Context, rc rateCall) (float64, error) {
	var callData []byte
	var err error
	if rc.arg != nil {
		callData, err = rc.abi.Pack(rc.method, rc.arg)
	} else {
		callData, err = rc.abi.Pack(rc.method)
	}
	if err != nil {
		return 0, fmt.Errorf("encode %s call: %w", rc.method, err)
	}

	result, err := p.client.CallContract(ctx, ethereum.CallMsg{
		To:   &rc.contract,
		Data: callData,
	}, nil)
	if err != nil {
		return 0, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s call failed", rc.method)))
	}

	outputs, err := rc.abi.Unpack(rc.method, result)
	if err != nil || len(outputs) == 0 {
		return 0, fmt.Errorf("decode %s result: %w", rc.method, err)
	}
	raw, ok := outputs[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s returned unexpected type %T", rc.method, outputs[0])
	}

	rate := new(big.Float).Quo(new(big.Float).SetInt(raw), rc.scale)
	f, _ := rate.Float64()
	return f, nil
}

// buildRateABI synthesizes a minimal single-function ABI for a view
// function shaped "name(uint256) view returns (uint256)" or
// "name() view returns (uint256)" -- the shape shared by every LSD rate
// getter this provider targets.
func buildRateABI(method string, hasArg bool) (abi.ABI, error) {
	inputs := ""
	if hasArg {
		inputs = `{"internalType":"uint256","name":"arg","type":"uint256"}`
	}
	j := fmt.Sprintf(`[{"inputs":[%s],"name":%q,"outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`, inputs, method)
	return abi.JSON(strings.NewReader(j))
}

func pow10(n uint8) float64 {
	f := 1.0
	for i := uint8(0); i < n; i++ {
		f *= 10
	}
	return f
}
