package eventbus_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-bot/internal/eventbus"
)

func word32(hexSuffix string) []byte {
	h := common.HexToHash(hexSuffix)
	return h.Bytes()
}

func TestDecodeSync_Scenario5(t *testing.T) {
	// spec.md §8 scenario 5: (reserve0, reserve1) = (1e18, 2e18).
	data := append(word32("0xde0b6b3a7640000"), word32("0x1bc16d674ec80000")...)
	log := &types.Log{Address: common.HexToAddress("0xaaaa"), Data: data, BlockNumber: 42, Index: 3}

	ev, err := eventbus.DecodeSync(log)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(1_000_000_000_000_000_000), ev.Reserve0)
	assert.Equal(t, new(uint256.Int).Mul(uint256.NewInt(1_000_000_000_000_000_000), uint256.NewInt(2)), ev.Reserve1)
}

func TestDecodeSync_RoundTrip(t *testing.T) {
	original := &eventbus.SyncEvent{
		Reserve0: uint256.NewInt(123456789),
		Reserve1: uint256.NewInt(987654321),
	}
	encoded := eventbus.EncodeSync(original)

	log := &types.Log{Data: encoded}
	decoded, err := eventbus.DecodeSync(log)
	require.NoError(t, err)
	assert.Equal(t, original.Reserve0, decoded.Reserve0)
	assert.Equal(t, original.Reserve1, decoded.Reserve1)
}

func TestDecodeSwapV3_SignedAmountsAndTick_RoundTrip(t *testing.T) {
	original := &eventbus.SwapV3Event{
		Amount0:      big.NewInt(-5000),
		Amount1:      big.NewInt(12345),
		SqrtPriceX96: uint256.NewInt(7922816251426433759), // arbitrary in-range value
		Liquidity:    uint256.NewInt(1_000_000_000),
		Tick:         -887,
	}
	encoded := eventbus.EncodeSwapV3(original)

	log := &types.Log{
		Data:   encoded,
		Topics: []common.Hash{eventbus.TopicV3Swap, common.Hash{}, common.Hash{}},
	}
	decoded, err := eventbus.DecodeSwapV3(log)
	require.NoError(t, err)
	assert.Equal(t, 0, original.Amount0.Cmp(decoded.Amount0))
	assert.Equal(t, 0, original.Amount1.Cmp(decoded.Amount1))
	assert.Equal(t, original.SqrtPriceX96, decoded.SqrtPriceX96)
	assert.Equal(t, original.Liquidity, decoded.Liquidity)
	assert.Equal(t, original.Tick, decoded.Tick)
}

func TestDecodeSync_WrongLength(t *testing.T) {
	log := &types.Log{Data: make([]byte, 10)}
	_, err := eventbus.DecodeSync(log)
	assert.Error(t, err)
}
