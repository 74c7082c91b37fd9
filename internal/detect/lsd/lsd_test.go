package lsd_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-bot/internal/ammmath"
	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/detect/lsd"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

var (
	stETH = common.HexToAddress("0x5000000000000000000000000000000000000001")
	wETH  = common.HexToAddress("0x5000000000000000000000000000000000000002")
)

type fakeRates struct {
	rate float64
	ok   bool
}

func (f fakeRates) ProtocolRate(ctx context.Context, token common.Address) (float64, bool) {
	return f.rate, f.ok
}

func v2Edge(from, to common.Address, dex string, reserveIn, reserveOut uint64, fee float64) *pricegraph.Edge {
	return &pricegraph.Edge{
		From:    from,
		To:      to,
		DEXName: dex,
		Quoter: &pricegraph.V2Quoter{
			ReserveIn:  uint256.NewInt(reserveIn),
			ReserveOut: uint256.NewInt(reserveOut),
			Fee:        ammmath.NewFeeNumerator(fee),
		},
		BlockNumber:  600,
		LiquidityUSD: 1_000_000,
	}
}

func TestDetect_ProtocolVsDEXDeviation_Flagged(t *testing.T) {
	g := pricegraph.New()
	// DEX quotes 0.95 wETH per stETH; protocol rate says stETH is worth
	// 1.0 wETH -- a 5% deviation, comfortably above any fee.
	g.Upsert(v2Edge(stETH, wETH, "curve", 1_000_000, 950_000, 0.0004))

	asset := lsd.Asset{Token: stETH, Underlying: wETH, RebaseHourUTC: 12, RebaseWindow: 30 * time.Minute}
	d := lsd.New([]lsd.Asset{asset}, fakeRates{rate: 1.0, ok: true})
	opps := d.Detect(context.Background(), g, detect.DetectConfig{BlockNumber: 600})

	require.NotEmpty(t, opps)
	found := false
	for _, o := range opps {
		if o.Variant == detect.VariantLSDProtocolDEX {
			found = true
			assert.Greater(t, o.Extra["deviation_percent"], 0.3)
		}
	}
	assert.True(t, found)
}

func TestDetect_NoRateAvailable_SkipsAsset(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(v2Edge(stETH, wETH, "curve", 1_000_000, 950_000, 0.0004))

	asset := lsd.Asset{Token: stETH, Underlying: wETH}
	d := lsd.New([]lsd.Asset{asset}, fakeRates{ok: false})
	opps := d.Detect(context.Background(), g, detect.DetectConfig{})
	assert.Empty(t, opps)
}

func TestDetect_CrossDEXSpread_Flagged(t *testing.T) {
	g := pricegraph.New()
	g.Upsert(v2Edge(stETH, wETH, "curve", 1_000_000, 980_000, 0.0004))
	g.Upsert(v2Edge(stETH, wETH, "uniswapv2", 1_000_000, 950_000, 0.003))

	asset := lsd.Asset{Token: stETH, Underlying: wETH}
	d := lsd.New([]lsd.Asset{asset}, fakeRates{rate: 0.98, ok: true})
	opps := d.Detect(context.Background(), g, detect.DetectConfig{})

	var crossDEX bool
	for _, o := range opps {
		if o.Variant == detect.VariantLSDCrossDEX {
			crossDEX = true
		}
	}
	assert.True(t, crossDEX)
}

func TestAsset_WithinRebaseWindow(t *testing.T) {
	asset := lsd.Asset{RebaseHourUTC: 12, RebaseWindow: 30 * time.Minute}
	g := pricegraph.New()
	g.Upsert(v2Edge(stETH, wETH, "curve", 1_000_000, 900_000, 0.0004))
	asset.Token, asset.Underlying = stETH, wETH

	within := time.Date(2026, 1, 1, 12, 15, 0, 0, time.UTC)
	d := lsd.New([]lsd.Asset{asset}, fakeRates{rate: 1.0, ok: true})
	opps := d.Detect(context.Background(), g, detect.DetectConfig{Now: within})

	require.NotEmpty(t, opps)
	assert.Equal(t, true, opps[0].Extra["within_rebase_window"])
}
