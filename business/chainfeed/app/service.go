package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arbitrage-bot/business/chainfeed/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/cache"
	"github.com/fd1az/arbitrage-bot/internal/detect/jit"
	"github.com/fd1az/arbitrage-bot/internal/eventbus"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// AggregatorQuote is a cached external routing quote (spec.md §4.4/§4.11),
// e.g. from an aggregator API consulted for LSD/stable cross-checks.
type AggregatorQuote struct {
	AmountOut  string // decimal string, kept opaque to this layer
	ObservedAt time.Time
}

// Service implements PriceSource (spec.md §4.4): an initial bulk poll,
// followed by event-bus-driven incremental updates, with a periodic re-poll
// to repair drift from missed events, and a short-TTL quote cache for
// external aggregator lookups.
type Service struct {
	chainName      string
	reader         BulkReader
	bus            *eventbus.Bus
	pools          []PoolRef
	poolIndex      map[common.Address]PoolRef
	repollInterval time.Duration
	log            logger.LoggerInterface

	mu       sync.RWMutex
	priceMap domain.PriceMap

	quoteCache *cache.Cache[string, AggregatorQuote]

	// jitTracker observes V3 Mint/Burn pairs for the JIT detector (spec.md
	// §4.9). Mint/Burn never touch priceMap — they carry no reserve or tick
	// state a quoter needs — so they are routed here instead of applySync/
	// applySwapV3.
	jitTracker *jit.Tracker
	jitMu      sync.Mutex
	jitEvents  []jit.Event

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewService builds a chainfeed Service.
func NewService(chainName string, reader BulkReader, bus *eventbus.Bus, pools []PoolRef, repollInterval, quoteCacheTTL time.Duration, log logger.LoggerInterface) *Service {
	index := make(map[common.Address]PoolRef, len(pools))
	for _, p := range pools {
		index[p.Pool] = p
	}
	return &Service{
		chainName:      chainName,
		reader:         reader,
		bus:            bus,
		pools:          pools,
		poolIndex:      index,
		repollInterval: repollInterval,
		log:            log,
		priceMap:       make(domain.PriceMap),
		quoteCache:     cache.New[string, AggregatorQuote](quoteCacheTTL),
		jitTracker:     jit.New(0),
		stopCh:         make(chan struct{}),
	}
}

// Snapshot returns the current PriceMap (spec.md §4.4 contract).
func (s *Service) Snapshot() domain.PriceMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.PriceMap, len(s.priceMap))
	for pair, byDex := range s.priceMap {
		out[pair] = make(map[string]domain.PoolSnapshot, len(byDex))
		for dex, snap := range byDex {
			out[pair][dex] = snap
		}
	}
	return out
}

// Start performs the initial bulk poll, then spawns the event-consumer and
// re-poll loops.
func (s *Service) Start(ctx context.Context) error {
	if err := s.bulkPoll(ctx); err != nil {
		return apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("chainfeed[%s] initial bulk poll", s.chainName)))
	}

	s.wg.Add(2)
	go s.consumeUpdates(ctx)
	go s.repollLoop(ctx)
	return nil
}

// Stop signals both background loops to exit and waits for them.
func (s *Service) Stop() error {
	close(s.stopCh)
	s.wg.Wait()
	return nil
}

func (s *Service) bulkPoll(ctx context.Context) error {
	snapshots, err := s.reader.ReadAll(ctx, s.pools)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snapshots {
		ref, ok := s.poolIndex[snap.Pool]
		if !ok {
			continue
		}
		pair := domain.NewPairKey(ref.Token0, ref.Token1)
		s.priceMap.Set(pair, snap.DEXName, snap)
	}
	return nil
}

func (s *Service) consumeUpdates(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case u, ok := <-s.bus.Updates():
			if !ok {
				return
			}
			s.applyUpdate(u)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) applyUpdate(u eventbus.Update) {
	switch {
	case u.Sync != nil:
		s.applySync(u.Sync)
	case u.SwapV3 != nil:
		s.applySwapV3(u.SwapV3)
	case u.MintBurnV3 != nil:
		s.applyMintBurnV3(u.MintBurnV3)
	}
}

func (s *Service) applyMintBurnV3(e *eventbus.MintBurnV3Event) {
	ev, matched := s.jitTracker.Observe(e)
	if !matched {
		return
	}
	s.jitMu.Lock()
	s.jitEvents = append(s.jitEvents, ev)
	s.jitMu.Unlock()
}

// DrainJITEvents returns every matched JIT event observed since the last
// call and clears the buffer, for the chain worker to pick up once per
// block alongside the graph-snapshot detectors.
func (s *Service) DrainJITEvents() []jit.Event {
	s.jitMu.Lock()
	defer s.jitMu.Unlock()
	out := s.jitEvents
	s.jitEvents = nil
	return out
}

// JITFrequency exposes the tracker's per-pool JIT rate for MEV-risk scoring.
func (s *Service) JITFrequency(pool common.Address) float64 {
	return s.jitTracker.Frequency(pool)
}

func (s *Service) applySync(e *eventbus.SyncEvent) {
	ref, ok := s.poolIndex[e.Pool]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := domain.NewPairKey(ref.Token0, ref.Token1)
	existing, _ := s.priceMap.Get(pair, ref.DEXName)
	if e.BlockNumber < existing.BlockNumber {
		return // ordering guarantee: discard stale updates (spec.md §5)
	}
	existing.Pool = e.Pool
	existing.DEXName = ref.DEXName
	existing.Family = ref.Family
	existing.Reserve0 = e.Reserve0
	existing.Reserve1 = e.Reserve1
	existing.BlockNumber = e.BlockNumber
	existing.ObservedAt = time.Now()
	s.priceMap.Set(pair, ref.DEXName, existing)
}

func (s *Service) applySwapV3(e *eventbus.SwapV3Event) {
	ref, ok := s.poolIndex[e.Pool]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := domain.NewPairKey(ref.Token0, ref.Token1)
	existing, _ := s.priceMap.Get(pair, ref.DEXName)
	if e.BlockNumber < existing.BlockNumber {
		return
	}
	existing.Pool = e.Pool
	existing.DEXName = ref.DEXName
	existing.Family = ref.Family
	existing.SqrtPriceX96 = e.SqrtPriceX96
	existing.Liquidity = e.Liquidity
	existing.Tick = e.Tick
	existing.FeeTier = ref.FeeTier
	existing.BlockNumber = e.BlockNumber
	existing.ObservedAt = time.Now()
	s.priceMap.Set(pair, ref.DEXName, existing)
}

func (s *Service) repollLoop(ctx context.Context) {
	defer s.wg.Done()
	interval := s.repollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.bulkPoll(ctx); err != nil && s.log != nil {
				s.log.Warn(ctx, "chainfeed: repoll failed", "chain", s.chainName, "error", err)
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// CachedQuote returns a previously cached aggregator quote for
// (aggregator, fromToken, toToken, amount), if still within its TTL
// (spec.md §4.4).
func (s *Service) CachedQuote(aggregator, fromToken, toToken, amount string) (AggregatorQuote, bool) {
	key := quoteCacheKey(aggregator, fromToken, toToken, amount)
	return s.quoteCache.Get(key)
}

// SetCachedQuote stores an aggregator quote under the cache's TTL.
func (s *Service) SetCachedQuote(aggregator, fromToken, toToken, amount string, quote AggregatorQuote) {
	key := quoteCacheKey(aggregator, fromToken, toToken, amount)
	s.quoteCache.Set(key, quote)
}

func quoteCacheKey(aggregator, fromToken, toToken, amount string) string {
	return aggregator + "|" + fromToken + "|" + toToken + "|" + amount
}
