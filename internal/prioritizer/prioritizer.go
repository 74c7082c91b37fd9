// Package prioritizer implements the adaptive per-pair scan-frequency tier
// state machine (spec.md §4.14): which pairs get scanned on which blocks,
// promoted on activity, and demoted on staleness.
package prioritizer

import "time"

// Tier is a pair's current scan-frequency class.
type Tier int

const (
	TierHot Tier = iota + 1
	TierWarm
	TierNormal
	TierCold
)

func (t Tier) String() string {
	switch t {
	case TierHot:
		return "HOT"
	case TierWarm:
		return "WARM"
	case TierNormal:
		return "NORMAL"
	case TierCold:
		return "COLD"
	default:
		return "UNKNOWN"
	}
}

// frequency returns the block-modulo gating frequency for a tier
// (spec.md §4.14: "frequencies 1/2/3/5").
func (t Tier) frequency() uint64 {
	switch t {
	case TierHot:
		return 1
	case TierWarm:
		return 2
	case TierNormal:
		return 3
	case TierCold:
		return 5
	default:
		return 3
	}
}

// staleness returns the default demotion timeout for a tier
// (spec.md §4.14: "default 5 min HOT, 15 min WARM, 30 min NORMAL").
// COLD is terminal; it has no demotion timeout.
func (t Tier) staleness() time.Duration {
	switch t {
	case TierHot:
		return 5 * time.Minute
	case TierWarm:
		return 15 * time.Minute
	case TierNormal:
		return 30 * time.Minute
	default:
		return 0
	}
}

// DemotionReason labels why a tierChange event fired.
type DemotionReason string

const (
	ReasonOpportunity DemotionReason = "opportunity"
	ReasonStaleness    DemotionReason = "staleness"
	ReasonInitial      DemotionReason = "initial"
)

// TierChange is emitted whenever a pair's tier transitions
// (spec.md §4.14 "Events tierChange{pairKey, oldTier, newTier, reason}").
type TierChange struct {
	PairKey string
	OldTier Tier
	NewTier Tier
	Reason  DemotionReason
	At      time.Time
}

type pairState struct {
	tier       Tier
	lastActive time.Time
}

// Prioritizer tracks per-pair tiers and emits tierChange events on a
// provided channel.
type Prioritizer struct {
	pairs  map[string]*pairState
	events chan<- TierChange
}

// New creates a Prioritizer that publishes tier-change events to events.
// events may be nil if the caller doesn't need them.
func New(events chan<- TierChange) *Prioritizer {
	return &Prioritizer{pairs: make(map[string]*pairState), events: events}
}

// InitialTier classifies a newly observed pair
// (spec.md §4.14: "HOT if volume > $100k, COLD if liquidity < $10k, else NORMAL").
func InitialTier(volumeUSD24h, liquidityUSD float64) Tier {
	switch {
	case volumeUSD24h > 100_000:
		return TierHot
	case liquidityUSD < 10_000:
		return TierCold
	default:
		return TierNormal
	}
}

// Register adds a pair at its initial tier, if not already tracked.
func (p *Prioritizer) Register(pairKey string, volumeUSD24h, liquidityUSD float64, now time.Time) {
	if _, exists := p.pairs[pairKey]; exists {
		return
	}
	tier := InitialTier(volumeUSD24h, liquidityUSD)
	p.pairs[pairKey] = &pairState{tier: tier, lastActive: now}
	p.emit(TierChange{PairKey: pairKey, OldTier: tier, NewTier: tier, Reason: ReasonInitial, At: now})
}

// ShouldScan reports whether pairKey is due for a scan on block B, per its
// tier's frequency (spec.md §4.14: "B mod frequency(tier) = 0").
func (p *Prioritizer) ShouldScan(pairKey string, block uint64) bool {
	state, ok := p.pairs[pairKey]
	if !ok {
		return true // unknown pairs are scanned until registered
	}
	freq := state.tier.frequency()
	return block%freq == 0
}

// PairsDueThisBlock returns every registered pair due for a scan at block.
func (p *Prioritizer) PairsDueThisBlock(block uint64) []string {
	var due []string
	for pairKey, state := range p.pairs {
		if block%state.tier.frequency() == 0 {
			due = append(due, pairKey)
		}
	}
	return due
}

// OnOpportunity promotes a pair to HOT on finding a live opportunity.
func (p *Prioritizer) OnOpportunity(pairKey string, now time.Time) {
	state, ok := p.pairs[pairKey]
	if !ok {
		state = &pairState{tier: TierHot, lastActive: now}
		p.pairs[pairKey] = state
		p.emit(TierChange{PairKey: pairKey, OldTier: TierHot, NewTier: TierHot, Reason: ReasonOpportunity, At: now})
		return
	}
	old := state.tier
	state.tier = TierHot
	state.lastActive = now
	if old != TierHot {
		p.emit(TierChange{PairKey: pairKey, OldTier: old, NewTier: TierHot, Reason: ReasonOpportunity, At: now})
	}
}

// Tick demotes any pair whose tier has gone stale relative to now, by one
// tier, capped at COLD (spec.md §4.14).
func (p *Prioritizer) Tick(now time.Time) {
	for pairKey, state := range p.pairs {
		timeout := state.tier.staleness()
		if timeout <= 0 {
			continue
		}
		if now.Sub(state.lastActive) < timeout {
			continue
		}
		old := state.tier
		next := demote(old)
		state.tier = next
		state.lastActive = now
		if next != old {
			p.emit(TierChange{PairKey: pairKey, OldTier: old, NewTier: next, Reason: ReasonStaleness, At: now})
		}
	}
}

func demote(t Tier) Tier {
	switch t {
	case TierHot:
		return TierWarm
	case TierWarm:
		return TierNormal
	case TierNormal:
		return TierCold
	default:
		return TierCold
	}
}

// TierOf returns a pair's current tier, and whether it is tracked.
func (p *Prioritizer) TierOf(pairKey string) (Tier, bool) {
	state, ok := p.pairs[pairKey]
	if !ok {
		return 0, false
	}
	return state.tier, true
}

func (p *Prioritizer) emit(change TierChange) {
	if p.events == nil {
		return
	}
	select {
	case p.events <- change:
	default:
	}
}
