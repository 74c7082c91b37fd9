// Package domain holds the price-source data model shared by the app and
// infra layers of the chainfeed bounded context (spec.md §4.4).
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PairKey is the canonical, unordered identity of a market: two token
// symbols ordered lexicographically (spec.md §3).
type PairKey string

// NewPairKey canonicalizes two symbols into a PairKey regardless of order.
func NewPairKey(symbolA, symbolB string) PairKey {
	if symbolA > symbolB {
		symbolA, symbolB = symbolB, symbolA
	}
	return PairKey(symbolA + "/" + symbolB)
}

// PoolSnapshot is a DEX-agnostic on-chain state record for one pool
// (spec.md §3 "Reserve snapshot"). Exactly one of the v2/v3 field groups is
// populated, selected by Family.
type PoolSnapshot struct {
	Pool        common.Address
	DEXName     string
	Family      string // matches config.DEXFamily
	Token0      common.Address
	Token1      common.Address
	BlockNumber uint64
	ObservedAt  time.Time

	// v2 (constant-product) fields.
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
	SwapFee  float64

	// v3 (concentrated-liquidity) fields.
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	Tick         int32
	FeeTier      int
}

// PriceMap is the price source's external contract: pair-key -> DEX name ->
// snapshot (spec.md §4.4).
type PriceMap map[PairKey]map[string]PoolSnapshot

// Get returns the snapshot for (pair, dex) and whether it is present. A
// missing snapshot is exposed as absent, never as stale data (spec.md §4.4
// "fails soft").
func (m PriceMap) Get(pair PairKey, dex string) (PoolSnapshot, bool) {
	byDex, ok := m[pair]
	if !ok {
		return PoolSnapshot{}, false
	}
	snap, ok := byDex[dex]
	return snap, ok
}

// Set stores a snapshot for (pair, dex).
func (m PriceMap) Set(pair PairKey, dex string, snap PoolSnapshot) {
	if m[pair] == nil {
		m[pair] = make(map[string]PoolSnapshot)
	}
	m[pair][dex] = snap
}
