package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/asset"
	"github.com/fd1az/arbitrage-bot/internal/cache"
	"github.com/fd1az/arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/httpclient"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

const tracerName = "coingecko-price-oracle"

// CoinGeckoConfig configures a CoinGeckoPriceOracle.
type CoinGeckoConfig struct {
	BaseURL  string // e.g. "https://api.coingecko.com/api/v3"
	APIKey   string // optional demo/pro key, sent as X-Cg-Demo-Api-Key
	CacheTTL time.Duration
	Timeout  time.Duration
}

// DefaultCoinGeckoConfig returns sane defaults for the public CoinGecko API.
func DefaultCoinGeckoConfig() CoinGeckoConfig {
	return CoinGeckoConfig{
		BaseURL:  "https://api.coingecko.com/api/v3",
		CacheTTL: 30 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// CoinGeckoPriceOracle implements app.TokenPriceOracle by resolving a token's
// CoinGecko id from its chain-config entry and fetching a live USD quote
// (spec.md §4.11: the USD reference must never be a hardcoded constant).
// Tokens with no configured CoinGeckoID report a miss rather than guessing.
type CoinGeckoPriceOracle struct {
	cfg    CoinGeckoConfig
	client httpclient.Client
	tracer trace.Tracer

	geckoID map[asset.AssetID]string
	cache   *cache.Cache[string, decimal.Decimal]
	cb      *circuitbreaker.CircuitBreaker[decimal.Decimal]
	log     logger.LoggerInterface
}

// NewCoinGeckoPriceOracle builds the id map from every configured chain's
// token list (native + ERC20) so USDPrice never needs a round trip to
// resolve "what is this address" before it can price it. The HTTP transport
// is the same OTEL-traced, metrics-counted internal/httpclient used for
// every other outbound REST call in this codebase, not a bare *http.Client.
func NewCoinGeckoPriceOracle(cfg CoinGeckoConfig, chains []config.ChainConfig, log logger.LoggerInterface) (*CoinGeckoPriceOracle, error) {
	ids := make(map[asset.AssetID]string)
	for _, chain := range chains {
		if chain.NativeToken.CoinGeckoID != "" {
			ids[asset.NewNativeAssetID(chain.ChainID)] = chain.NativeToken.CoinGeckoID
		}
		for _, t := range chain.Tokens {
			if t.CoinGeckoID == "" || !common.IsHexAddress(t.Address) {
				continue
			}
			ids[asset.NewTokenAssetID(chain.ChainID, common.HexToAddress(t.Address))] = t.CoinGeckoID
		}
	}

	tracer := otel.Tracer(tracerName)

	headers := map[string]string{"Accept": "application/json"}
	if cfg.APIKey != "" {
		headers["X-Cg-Demo-Api-Key"] = cfg.APIKey
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("coingecko"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(headers),
	)
	if err != nil {
		return nil, fmt.Errorf("coingecko price oracle: build http client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("coingecko-price-oracle")
	return &CoinGeckoPriceOracle{
		cfg:     cfg,
		client:  client,
		tracer:  tracer,
		geckoID: ids,
		cache:   cache.New[string, decimal.Decimal](cfg.CacheTTL),
		cb:      circuitbreaker.New[decimal.Decimal](cbCfg),
		log:     log,
	}, nil
}

// USDPrice implements app.TokenPriceOracle.
func (o *CoinGeckoPriceOracle) USDPrice(ctx context.Context, chainID uint64, token common.Address) (decimal.Decimal, bool) {
	id := asset.NewTokenAssetID(chainID, token)
	geckoID, ok := o.geckoID[id]
	if !ok {
		return decimal.Zero, false
	}

	if price, ok := o.cache.Get(geckoID); ok {
		return price, true
	}

	price, err := o.cb.Execute(func() (decimal.Decimal, error) {
		return o.fetch(ctx, geckoID)
	})
	if err != nil {
		o.log.Warn(ctx, "coingecko price fetch failed", "token", token.Hex(), "gecko_id", geckoID, "error", err)
		return decimal.Zero, false
	}

	o.cache.Set(geckoID, price)
	return price, true
}

// USDPriceNative is the native-coin variant of USDPrice, looked up by
// chain id alone since the native coin has no contract address.
func (o *CoinGeckoPriceOracle) USDPriceNative(ctx context.Context, chainID uint64) (decimal.Decimal, bool) {
	geckoID, ok := o.geckoID[asset.NewNativeAssetID(chainID)]
	if !ok {
		return decimal.Zero, false
	}
	if price, ok := o.cache.Get(geckoID); ok {
		return price, true
	}
	price, err := o.cb.Execute(func() (decimal.Decimal, error) {
		return o.fetch(ctx, geckoID)
	})
	if err != nil {
		o.log.Warn(ctx, "coingecko native price fetch failed", "chain_id", chainID, "gecko_id", geckoID, "error", err)
		return decimal.Zero, false
	}
	o.cache.Set(geckoID, price)
	return price, true
}

func (o *CoinGeckoPriceOracle) fetch(ctx context.Context, geckoID string) (decimal.Decimal, error) {
	ctx, span := o.tracer.Start(ctx, "coingecko.fetch",
		trace.WithAttributes(attribute.String("gecko_id", geckoID)))
	defer span.End()

	var parsed map[string]map[string]float64
	resp, err := o.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("gecko_id", geckoID)),
	).
		SetQueryParam("ids", geckoID).
		SetQueryParam("vs_currencies", "usd").
		SetResult(&parsed).
		Get(ctx, "/simple/price")
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, apperror.New(apperror.CodeExternalServiceError, apperror.WithCause(err))
	}

	if resp.IsError() {
		return decimal.Zero, apperror.New(apperror.CodeExternalServiceError,
			apperror.WithContext(fmt.Sprintf("coingecko status %d: %s", resp.StatusCode, resp.String())))
	}
	if resp.Result() == nil {
		return decimal.Zero, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithContext("coingecko response body did not decode as json"))
	}

	usd, ok := parsed[geckoID]["usd"]
	if !ok {
		return decimal.Zero, apperror.New(apperror.CodeNotFound,
			apperror.WithContext(fmt.Sprintf("no usd quote for %s", geckoID)))
	}

	return decimal.NewFromFloat(usd), nil
}
