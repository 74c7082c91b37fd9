package mevsim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fd1az/arbitrage-bot/internal/mevsim"
)

func baseInput() mevsim.Input {
	return mevsim.Input{
		NetProfitUSD:           100,
		TradeValueUSD:          2000,
		GasCostUSD:             5,
		GasPricePercentile:     0.5,
		BlocksSinceOpportunity: 0,
		ChainBlockTimeMs:       3000,
		PriceStability:         1.0,
	}
}

func TestEvaluate_FreshHighProfitOpportunity_RecommendsExecuteOrCaution(t *testing.T) {
	result := mevsim.Evaluate(baseInput())
	assert.Greater(t, result.SuccessProbability, 0.0)
	assert.Contains(t, []mevsim.Recommendation{mevsim.RecommendExecute, mevsim.RecommendExecuteWithCaution}, result.Recommendation)
}

func TestEvaluate_HighCompetitorCount_HardSkip(t *testing.T) {
	in := baseInput()
	in.NetProfitUSD = 100000 // drives competitor count to the max bucket
	result := mevsim.Evaluate(in)
	assert.GreaterOrEqual(t, result.CompetitorCount, 8)
	assert.Equal(t, mevsim.RecommendSkip, result.Recommendation)
}

func TestEvaluate_SandwichRiskRequiresBothThresholds(t *testing.T) {
	in := baseInput()
	in.TradeValueUSD = 1500
	in.NetProfitUSD = 5 // below the $10 sandwich profit threshold
	result := mevsim.Evaluate(in)
	assert.Equal(t, 0.0, result.SandwichRisk)
}

func TestEvaluate_SandwichRiskTriggersAboveBothThresholds(t *testing.T) {
	in := baseInput()
	in.TradeValueUSD = 1500
	in.NetProfitUSD = 50
	result := mevsim.Evaluate(in)
	assert.Greater(t, result.SandwichRisk, 0.0)
}

func TestEvaluate_PotentialMEVLossNeverExceedsNetProfit(t *testing.T) {
	in := baseInput()
	in.TradeValueUSD = 5000
	in.NetProfitUSD = 20
	result := mevsim.Evaluate(in)
	assert.LessOrEqual(t, result.PotentialMEVLossUSD, in.NetProfitUSD)
}

func TestEvaluate_StaleOpportunity_LowersSuccessProbability(t *testing.T) {
	fresh := baseInput()
	stale := baseInput()
	stale.BlocksSinceOpportunity = 20

	freshResult := mevsim.Evaluate(fresh)
	staleResult := mevsim.Evaluate(stale)
	assert.Less(t, staleResult.SuccessProbability, freshResult.SuccessProbability)
}

func TestEvaluate_ZeroProfit_RecommendsSkip(t *testing.T) {
	in := baseInput()
	in.NetProfitUSD = 0
	result := mevsim.Evaluate(in)
	assert.Equal(t, mevsim.RecommendSkip, result.Recommendation)
}
