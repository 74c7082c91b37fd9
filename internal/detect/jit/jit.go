// Package jit implements the just-in-time liquidity half of C9: matching
// v3 Mint/Burn pairs across a bounded block window to detect liquidity
// added immediately before, and removed immediately after, a large swap
// (spec.md §4.9 "JIT liquidity").
//
// Unlike the other C9 detectors, JIT has no graph snapshot to scan — its
// input is an event stream — so it does not implement the shared
// detect.Detector interface. It is instead a stateful Tracker fed directly
// from the eventbus, the way the teacher's subscriber feeds reserve updates.
package jit

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/eventbus"
)

const (
	// defaultBlockWindow bounds how many blocks after a Mint a matching
	// Burn is still considered JIT (spec.md §4.9: "default 2 blocks").
	defaultBlockWindow = 2
	// minRemovedFraction is the minimum removed/added liquidity ratio for
	// a Burn to count as closing out a JIT position (spec.md §4.9: "≥ 80%").
	minRemovedFraction = 0.80
)

type positionKey struct {
	Pool      common.Address
	Owner     common.Address
	TickLower int32
	TickUpper int32
}

type openPosition struct {
	amount      *uint256.Int
	amount0     *uint256.Int
	amount1     *uint256.Int
	blockNumber uint64
}

// Event is an emitted JIT match: liquidity opened and closed around a
// narrow tick range within the block window.
type Event struct {
	Pool           common.Address
	Owner          common.Address
	TickLower      int32
	TickUpper      int32
	MintBlock      uint64
	BurnBlock      uint64
	AddedAmount0   *uint256.Int
	AddedAmount1   *uint256.Int
	RemovedAmount0 *uint256.Int
	RemovedAmount1 *uint256.Int
	// FeesEarned0/1 approximate fees captured by the position: tokens
	// removed in excess of tokens added (spec.md §4.9: "fees earned ≈
	// tokens removed − tokens added"). Negative values (net loss, e.g. from
	// impermanent loss within the window) are clamped to zero.
	FeesEarned0 *uint256.Int
	FeesEarned1 *uint256.Int
}

// Tracker consumes MintBurnV3 events and matches Mint/Burn pairs within a
// bounded block window, tracking per-pool JIT frequency for likelihood
// estimation (spec.md §4.9).
type Tracker struct {
	blockWindow uint64

	mu       sync.Mutex
	open     map[positionKey]openPosition
	jitCount map[common.Address]uint64
	total    map[common.Address]uint64
}

func New(blockWindow uint64) *Tracker {
	if blockWindow == 0 {
		blockWindow = defaultBlockWindow
	}
	return &Tracker{
		blockWindow: blockWindow,
		open:        make(map[positionKey]openPosition),
		jitCount:    make(map[common.Address]uint64),
		total:       make(map[common.Address]uint64),
	}
}

// Observe records a decoded Mint or Burn event, returning a JIT Event when
// this Burn closes out a matching recent Mint.
func (t *Tracker) Observe(e *eventbus.MintBurnV3Event) (Event, bool) {
	if e == nil {
		return Event{}, false
	}
	key := positionKey{Pool: e.Pool, Owner: e.Owner, TickLower: e.TickLower, TickUpper: e.TickUpper}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !e.IsBurn {
		t.open[key] = openPosition{amount: e.Amount, amount0: e.Amount0, amount1: e.Amount1, blockNumber: e.BlockNumber}
		return Event{}, false
	}

	mint, ok := t.open[key]
	if !ok {
		return Event{}, false
	}
	delete(t.open, key)
	t.total[e.Pool]++

	if e.BlockNumber < mint.blockNumber || e.BlockNumber-mint.blockNumber > t.blockWindow {
		return Event{}, false
	}
	if mint.amount == nil || mint.amount.IsZero() {
		return Event{}, false
	}
	removedFraction := removedFractionOf(e.Amount, mint.amount)
	if removedFraction < minRemovedFraction {
		return Event{}, false
	}

	t.jitCount[e.Pool]++

	return Event{
		Pool:           e.Pool,
		Owner:          e.Owner,
		TickLower:      e.TickLower,
		TickUpper:      e.TickUpper,
		MintBlock:      mint.blockNumber,
		BurnBlock:      e.BlockNumber,
		AddedAmount0:   mint.amount0,
		AddedAmount1:   mint.amount1,
		RemovedAmount0: e.Amount0,
		RemovedAmount1: e.Amount1,
		FeesEarned0:    clampedDiff(e.Amount0, mint.amount0),
		FeesEarned1:    clampedDiff(e.Amount1, mint.amount1),
	}, true
}

func removedFractionOf(removed, added *uint256.Int) float64 {
	if added == nil || added.IsZero() || removed == nil {
		return 0
	}
	return detect.ToFloat64(removed) / detect.ToFloat64(added)
}

func clampedDiff(removed, added *uint256.Int) *uint256.Int {
	if removed == nil || added == nil {
		return uint256.NewInt(0)
	}
	if removed.Cmp(added) <= 0 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(removed, added)
}

// Frequency returns the fraction of observed Burns on a pool that matched
// as JIT, used to estimate JIT likelihood for incoming large trades
// (spec.md §4.9: "track per-pool JIT frequency").
func (t *Tracker) Frequency(pool common.Address) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.total[pool]
	if total == 0 {
		return 0
	}
	return float64(t.jitCount[pool]) / float64(total)
}

// ToOpportunity converts a JIT Event into the shared Opportunity shape so
// it can flow through the same scoring and ranking pipeline as the
// graph-snapshot detectors' output.
func ToOpportunity(e Event, cfg detect.DetectConfig) detect.Opportunity {
	return detect.Opportunity{
		Variant:     detect.VariantJITArb,
		Path:        []common.Address{e.Pool},
		DEXes:       []string{"uniswapv3"},
		BlockNumber: e.BurnBlock,
		Timestamp:   cfg.Now,
		Extra: map[string]any{
			"pool":          e.Pool,
			"owner":         e.Owner,
			"tick_lower":    e.TickLower,
			"tick_upper":    e.TickUpper,
			"mint_block":    e.MintBlock,
			"burn_block":    e.BurnBlock,
			"fees_earned_0": e.FeesEarned0,
			"fees_earned_1": e.FeesEarned1,
		},
	}
}
