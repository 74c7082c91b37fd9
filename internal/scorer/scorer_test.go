package scorer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fd1az/arbitrage-bot/internal/scorer"
)

func TestScore_AllMaxSubScores_Is100Excellent(t *testing.T) {
	sub := scorer.SubScores{Profit: 1, Liquidity: 1, ExecutionProbability: 1, TimeFreshness: 1, TokenQuality: 1}
	score, tier := scorer.Score(sub, scorer.DefaultWeights())
	assert.InDelta(t, 100, score, 0.001)
	assert.Equal(t, scorer.TierExcellent, tier)
}

func TestScore_AllZeroSubScores_IsPoor(t *testing.T) {
	sub := scorer.SubScores{}
	score, tier := scorer.Score(sub, scorer.DefaultWeights())
	assert.Equal(t, 0.0, score)
	assert.Equal(t, scorer.TierPoor, tier)
}

func TestTierOf_Thresholds(t *testing.T) {
	assert.Equal(t, scorer.TierExcellent, scorer.TierOf(80))
	assert.Equal(t, scorer.TierGood, scorer.TierOf(60))
	assert.Equal(t, scorer.TierAcceptable, scorer.TierOf(40))
	assert.Equal(t, scorer.TierMarginal, scorer.TierOf(20))
	assert.Equal(t, scorer.TierPoor, scorer.TierOf(19.999))
}

func TestWeights_NormalizeRescalesToSumOne(t *testing.T) {
	w := scorer.Weights{Profit: 2, Liquidity: 2, ExecutionProbability: 2, TimeFreshness: 2, TokenQuality: 2}
	normalized := w.Normalize()
	sum := normalized.Profit + normalized.Liquidity + normalized.ExecutionProbability + normalized.TimeFreshness + normalized.TokenQuality
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestWeights_NormalizeZeroSumFallsBackToDefault(t *testing.T) {
	w := scorer.Weights{}
	normalized := w.Normalize()
	assert.Equal(t, scorer.DefaultWeights(), normalized)
}

func TestProfitSubScore_SaturatesAtCap(t *testing.T) {
	assert.Equal(t, 0.0, scorer.ProfitSubScore(0, 1000))
	assert.InDelta(t, 1.0, scorer.ProfitSubScore(1000, 1000), 1e-9)
	below := scorer.ProfitSubScore(100, 1000)
	assert.Greater(t, below, 0.0)
	assert.Less(t, below, 1.0)
}

func TestTimeFreshnessSubScore_DecaysToZeroAtMaxAge(t *testing.T) {
	assert.Equal(t, 1.0, scorer.TimeFreshnessSubScore(0, 5*time.Minute))
	assert.Equal(t, 0.0, scorer.TimeFreshnessSubScore(5*time.Minute, 5*time.Minute))
	mid := scorer.TimeFreshnessSubScore(150*time.Second, 5*time.Minute)
	assert.InDelta(t, 0.5, mid, 1e-9)
}

func TestTokenQualitySubScore_StableBeatsLongTail(t *testing.T) {
	assert.Greater(t, scorer.TokenQualitySubScore(scorer.TokenQualityStable), scorer.TokenQualitySubScore(scorer.TokenQualityLong))
}
