package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-bot/business/chainfeed/app"
	"github.com/fd1az/arbitrage-bot/business/chainfeed/domain"
	"github.com/fd1az/arbitrage-bot/internal/eventbus"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

var (
	poolWBNBBUSD = common.HexToAddress("0xdead1")
	tokenWBNB    = common.HexToAddress("0xb001")
	tokenBUSD    = common.HexToAddress("0xb002")
)

type fakeReader struct {
	snapshots []domain.PoolSnapshot
}

func (f *fakeReader) ReadAll(ctx context.Context, pools []app.PoolRef) ([]domain.PoolSnapshot, error) {
	return f.snapshots, nil
}

func newTestPools() []app.PoolRef {
	return []app.PoolRef{
		{Pool: poolWBNBBUSD, DEXName: "pancakeswap-v2", Family: "v2", Token0: "WBNB", Token1: "BUSD"},
	}
}

func TestService_InitialBulkPollPopulatesSnapshot(t *testing.T) {
	reader := &fakeReader{snapshots: []domain.PoolSnapshot{
		{
			Pool: poolWBNBBUSD, DEXName: "pancakeswap-v2", Family: "v2",
			Token0: tokenWBNB, Token1: tokenBUSD,
			Reserve0: uint256.NewInt(1000), Reserve1: uint256.NewInt(2000),
			BlockNumber: 10,
		},
	}}
	bus := eventbus.New(10*time.Millisecond, 8, logger.Noop())
	defer bus.Close()

	svc := app.NewService("bsc", reader, bus, newTestPools(), time.Hour, time.Second, logger.Noop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	snap := svc.Snapshot()
	pair := domain.NewPairKey("WBNB", "BUSD")
	got, ok := snap.Get(pair, "pancakeswap-v2")
	require.True(t, ok)
	assert.Equal(t, uint256.NewInt(1000), got.Reserve0)
	assert.Equal(t, uint256.NewInt(2000), got.Reserve1)
}

func TestService_ApplySyncUpdate_DiscardsStaleBlock(t *testing.T) {
	reader := &fakeReader{snapshots: []domain.PoolSnapshot{
		{
			Pool: poolWBNBBUSD, DEXName: "pancakeswap-v2", Family: "v2",
			Reserve0: uint256.NewInt(1000), Reserve1: uint256.NewInt(2000),
			BlockNumber: 10,
		},
	}}
	bus := eventbus.New(5*time.Millisecond, 8, logger.Noop())
	defer bus.Close()

	svc := app.NewService("bsc", reader, bus, newTestPools(), time.Hour, time.Second, logger.Noop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	bus.Publish(context.Background(), eventbus.Update{Sync: &eventbus.SyncEvent{
		Pool: poolWBNBBUSD, Reserve0: uint256.NewInt(1), Reserve1: uint256.NewInt(1), BlockNumber: 5,
	}})
	time.Sleep(50 * time.Millisecond)

	pair := domain.NewPairKey("WBNB", "BUSD")
	got, ok := svc.Snapshot().Get(pair, "pancakeswap-v2")
	require.True(t, ok)
	assert.Equal(t, uint256.NewInt(1000), got.Reserve0, "stale block-5 update must not overwrite block-10 snapshot")
}

func TestService_ApplySyncUpdate_AppliesNewerBlock(t *testing.T) {
	reader := &fakeReader{snapshots: []domain.PoolSnapshot{
		{
			Pool: poolWBNBBUSD, DEXName: "pancakeswap-v2", Family: "v2",
			Reserve0: uint256.NewInt(1000), Reserve1: uint256.NewInt(2000),
			BlockNumber: 10,
		},
	}}
	bus := eventbus.New(5*time.Millisecond, 8, logger.Noop())
	defer bus.Close()

	svc := app.NewService("bsc", reader, bus, newTestPools(), time.Hour, time.Second, logger.Noop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	bus.Publish(context.Background(), eventbus.Update{Sync: &eventbus.SyncEvent{
		Pool: poolWBNBBUSD, Reserve0: uint256.NewInt(5000), Reserve1: uint256.NewInt(6000), BlockNumber: 11,
	}})
	time.Sleep(50 * time.Millisecond)

	pair := domain.NewPairKey("WBNB", "BUSD")
	got, ok := svc.Snapshot().Get(pair, "pancakeswap-v2")
	require.True(t, ok)
	assert.Equal(t, uint256.NewInt(5000), got.Reserve0)
	assert.Equal(t, uint64(11), got.BlockNumber)
}

func TestService_QuoteCache_SetAndGet(t *testing.T) {
	reader := &fakeReader{}
	bus := eventbus.New(5*time.Millisecond, 8, logger.Noop())
	defer bus.Close()

	svc := app.NewService("bsc", reader, bus, nil, time.Hour, 50*time.Millisecond, logger.Noop())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	svc.SetCachedQuote("1inch", "WBNB", "BUSD", "1000", app.AggregatorQuote{AmountOut: "250.5"})
	got, ok := svc.CachedQuote("1inch", "WBNB", "BUSD", "1000")
	require.True(t, ok)
	assert.Equal(t, "250.5", got.AmountOut)

	time.Sleep(100 * time.Millisecond)
	_, ok = svc.CachedQuote("1inch", "WBNB", "BUSD", "1000")
	assert.False(t, ok, "quote cache entry must expire after its TTL")
}
