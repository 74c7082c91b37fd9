package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// Update is a decoded, debounced event ready for the price graph or a
// downstream detector to consume. Exactly one of the typed fields is set.
type Update struct {
	Sync       *SyncEvent
	SwapV2     *SwapV2Event
	SwapV3     *SwapV3Event
	MintBurnV3 *MintBurnV3Event
}

// Stats tallies debounce counters per pool for observability.
type Stats struct {
	mu      sync.RWMutex
	Applied map[common.Address]uint64
	Dropped map[common.Address]uint64 // coalesced updates, tallied not applied
}

func newStats() *Stats {
	return &Stats{Applied: make(map[common.Address]uint64), Dropped: make(map[common.Address]uint64)}
}

func (s *Stats) recordApplied(pool common.Address) {
	s.mu.Lock()
	s.Applied[pool]++
	s.mu.Unlock()
}

func (s *Stats) recordDropped(pool common.Address) {
	s.mu.Lock()
	s.Dropped[pool]++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() (applied, dropped map[common.Address]uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	applied = make(map[common.Address]uint64, len(s.Applied))
	dropped = make(map[common.Address]uint64, len(s.Dropped))
	for k, v := range s.Applied {
		applied[k] = v
	}
	for k, v := range s.Dropped {
		dropped[k] = v
	}
	return applied, dropped
}

// Bus debounces per-pool updates (spec.md §4.3: default 100ms window, keyed
// by pool address) and fans them out over a buffered channel. Updates from
// the same pool are serialized through a per-pool debounce timer; updates
// across pools proceed independently and concurrently.
type Bus struct {
	debounce time.Duration
	log      logger.LoggerInterface
	out      chan Update
	stats    *Stats

	mu      sync.Mutex
	pending map[common.Address]*pendingState
}

type pendingState struct {
	latest Update
	timer  *time.Timer
}

// New creates a Bus with the given debounce window and output buffer size.
func New(debounce time.Duration, bufferSize int, log logger.LoggerInterface) *Bus {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Bus{
		debounce: debounce,
		log:      log,
		out:      make(chan Update, bufferSize),
		stats:    newStats(),
		pending:  make(map[common.Address]*pendingState),
	}
}

// Updates returns the fan-out channel detectors and the price source read
// debounced updates from.
func (b *Bus) Updates() <-chan Update {
	return b.out
}

// Stats returns the bus's debounce counters.
func (b *Bus) Stats() *Stats { return b.stats }

func poolOf(u Update) common.Address {
	switch {
	case u.Sync != nil:
		return u.Sync.Pool
	case u.SwapV2 != nil:
		return u.SwapV2.Pool
	case u.SwapV3 != nil:
		return u.SwapV3.Pool
	case u.MintBurnV3 != nil:
		return u.MintBurnV3.Pool
	default:
		return common.Address{}
	}
}

// Publish submits a decoded update for debouncing. Only the latest update
// per pool within the debounce window is ultimately forwarded; coalesced
// ones are tallied in Stats, not dropped silently.
func (b *Bus) Publish(ctx context.Context, u Update) {
	pool := poolOf(u)

	b.mu.Lock()
	state, exists := b.pending[pool]
	if !exists {
		state = &pendingState{}
		b.pending[pool] = state
	} else {
		b.stats.recordDropped(pool)
	}
	state.latest = u
	if state.timer != nil {
		state.timer.Stop()
	}
	state.timer = time.AfterFunc(b.debounce, func() {
		b.flush(ctx, pool)
	})
	b.mu.Unlock()
}

func (b *Bus) flush(ctx context.Context, pool common.Address) {
	b.mu.Lock()
	state, ok := b.pending[pool]
	if !ok {
		b.mu.Unlock()
		return
	}
	update := state.latest
	delete(b.pending, pool)
	b.mu.Unlock()

	b.stats.recordApplied(pool)

	select {
	case b.out <- update:
	case <-ctx.Done():
	default:
		if b.log != nil {
			b.log.Warn(ctx, "eventbus: output channel full, dropping update", "pool", pool.Hex())
		}
	}
}

// Close stops all pending debounce timers and closes the output channel.
// Safe to call once after the producer loop has stopped.
func (b *Bus) Close() {
	b.mu.Lock()
	for _, state := range b.pending {
		if state.timer != nil {
			state.timer.Stop()
		}
	}
	b.mu.Unlock()
	close(b.out)
}
