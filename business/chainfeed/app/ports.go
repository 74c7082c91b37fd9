// Package app implements the per-chain price source (spec.md §4.4): the
// bridge between raw chain RPC / event-bus updates and the price graph.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arbitrage-bot/business/chainfeed/domain"
)

// PriceSource is the contract detectors and the chain worker consume
// (spec.md §4.4 / §1 "PriceSource interface"). It is the only way the
// detection core touches chain state.
type PriceSource interface {
	Snapshot() domain.PriceMap
	Start(ctx context.Context) error
	Stop() error
}

// BulkReader performs the initial batched poll across all tracked pools,
// e.g. via Multicall3-aggregated eth_call (spec.md §6).
type BulkReader interface {
	ReadAll(ctx context.Context, pools []PoolRef) ([]domain.PoolSnapshot, error)
}

// PoolRef identifies one pool to poll: its address, DEX name/family and the
// two tokens it trades, as configured in ChainConfig.
type PoolRef struct {
	Pool     common.Address
	DEXName  string
	Family   string
	Token0   string // symbol
	Token1   string // symbol
	FeeTier  int     // v3 only, hundredths of a bip
	SwapFee  float64 // v2 only, fractional (e.g. 0.003)
}
