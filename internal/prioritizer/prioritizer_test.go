package prioritizer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-bot/internal/prioritizer"
)

func TestInitialTier_Classification(t *testing.T) {
	assert.Equal(t, prioritizer.TierHot, prioritizer.InitialTier(150_000, 500_000))
	assert.Equal(t, prioritizer.TierCold, prioritizer.InitialTier(0, 5_000))
	assert.Equal(t, prioritizer.TierNormal, prioritizer.InitialTier(10_000, 50_000))
}

// TestPrioritizer_Scenario6_TierLifecycle is spec.md §8 scenario 6: register
// a pair at NORMAL, promote to HOT on opportunity, confirm HOT's 1-block
// gating passes every block, then after HOT's staleness window elapses with
// no further activity, demote exactly one step to WARM and confirm WARM's
// 2-block gating pattern (pass/fail/pass at 100/101/102).
func TestPrioritizer_Scenario6_TierLifecycle(t *testing.T) {
	events := make(chan prioritizer.TierChange, 10)
	p := prioritizer.New(events)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.Register("WBNB/BUSD", 10_000, 50_000, t0) // volume/liquidity land it at NORMAL
	tier, ok := p.TierOf("WBNB/BUSD")
	require.True(t, ok)
	assert.Equal(t, prioritizer.TierNormal, tier)

	p.OnOpportunity("WBNB/BUSD", t0)
	tier, _ = p.TierOf("WBNB/BUSD")
	assert.Equal(t, prioritizer.TierHot, tier)

	assert.True(t, p.ShouldScan("WBNB/BUSD", 100))
	assert.True(t, p.ShouldScan("WBNB/BUSD", 101))
	assert.True(t, p.ShouldScan("WBNB/BUSD", 102))

	// Advance past HOT's 5-minute staleness window with no further activity.
	afterDecay := t0.Add(6 * time.Minute)
	p.Tick(afterDecay)

	tier, _ = p.TierOf("WBNB/BUSD")
	assert.Equal(t, prioritizer.TierWarm, tier, "must demote exactly one step, not straight to COLD")

	assert.True(t, p.ShouldScan("WBNB/BUSD", 100))
	assert.False(t, p.ShouldScan("WBNB/BUSD", 101))
	assert.True(t, p.ShouldScan("WBNB/BUSD", 102))

	// Drain the emitted tierChange events: initial NORMAL, promotion to HOT,
	// demotion to WARM.
	var reasons []prioritizer.DemotionReason
	close(events)
	for ev := range events {
		reasons = append(reasons, ev.Reason)
	}
	assert.Equal(t, []prioritizer.DemotionReason{
		prioritizer.ReasonInitial,
		prioritizer.ReasonOpportunity,
		prioritizer.ReasonStaleness,
	}, reasons)
}

func TestPrioritizer_Tick_DoesNotDemoteBeforeStalenessWindow(t *testing.T) {
	p := prioritizer.New(nil)
	t0 := time.Now()
	p.Register("A/B", 150_000, 1_000_000, t0) // HOT
	p.Tick(t0.Add(1 * time.Minute))
	tier, _ := p.TierOf("A/B")
	assert.Equal(t, prioritizer.TierHot, tier)
}

func TestPrioritizer_Tick_ColdIsTerminal(t *testing.T) {
	p := prioritizer.New(nil)
	t0 := time.Now()
	p.Register("A/B", 0, 1_000, t0) // COLD
	p.Tick(t0.Add(24 * time.Hour))
	tier, _ := p.TierOf("A/B")
	assert.Equal(t, prioritizer.TierCold, tier)
}

func TestPrioritizer_PairsDueThisBlock(t *testing.T) {
	p := prioritizer.New(nil)
	t0 := time.Now()
	p.Register("hot-pair", 200_000, 1_000_000, t0)
	p.Register("cold-pair", 0, 1_000, t0)

	due := p.PairsDueThisBlock(5) // cold freq=5, hot freq=1: both due
	assert.ElementsMatch(t, []string{"hot-pair", "cold-pair"}, due)

	due = p.PairsDueThisBlock(3) // hot freq=1 due, cold freq=5 not due
	assert.ElementsMatch(t, []string{"hot-pair"}, due)
}
