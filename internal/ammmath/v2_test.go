package ammmath_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/arbitrage-bot/internal/ammmath"
)

func u256(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestV2AmountOut_ZeroReserves(t *testing.T) {
	f := ammmath.NewFeeNumerator(0.003)
	assert.True(t, ammmath.V2AmountOut(u256(100), u256(0), u256(1000), f).IsZero())
	assert.True(t, ammmath.V2AmountOut(u256(100), u256(1000), u256(0), f).IsZero())
	assert.True(t, ammmath.V2AmountOut(u256(0), u256(1000), u256(1000), f).IsZero())
}

func TestV2AmountOut_NeverExceedsReserveOut(t *testing.T) {
	f := ammmath.NewFeeNumerator(0.003)
	rIn := u256(1000)
	rOut := u256(300000)

	for _, in := range []uint64{1, 10, 100, 1000, 10000, 100000} {
		out := ammmath.V2AmountOut(u256(in), rIn, rOut, f)
		assert.True(t, out.Cmp(rOut) <= 0, "out must never exceed reserveOut")

		// Strictly less than the fee-free spot-price prediction (price impact).
		noImpact := new(uint256.Int).Div(new(uint256.Int).Mul(u256(in), rOut), rIn)
		assert.True(t, out.Cmp(noImpact) < 0, "out must reflect price impact")
	}
}

func TestV2AmountOut_Scenario1_TwoDEXSpread(t *testing.T) {
	// spec.md §8 scenario 1: WBNB/BUSD, fee 0.0025 both sides.
	f := ammmath.NewFeeNumerator(0.0025)
	rInA := new(uint256.Int).Mul(u256(1000), pow10(18))
	rOutA := new(uint256.Int).Mul(u256(300000), pow10(18))
	rOutB := new(uint256.Int).Mul(u256(310000), pow10(18))

	amountIn := new(uint256.Int).Mul(u256(1), pow10(18))
	outOnA := ammmath.V2AmountOut(amountIn, rInA, rOutA, f)
	outOnB := ammmath.V2AmountOut(amountIn, rInA, rOutB, f)
	assert.True(t, outOnB.Cmp(outOnA) > 0, "DEX B should quote more BUSD per WBNB than DEX A")
}

func pow10(n uint64) *uint256.Int {
	return new(uint256.Int).Exp(u256(10), u256(n))
}

func TestApplyPath_StopsAtZero(t *testing.T) {
	f := ammmath.NewFeeNumerator(0.003)
	hops := []ammmath.Hop{
		{ReserveIn: u256(1000), ReserveOut: u256(0), Fee: f},
		{ReserveIn: u256(1000), ReserveOut: u256(2000), Fee: f},
	}
	assert.True(t, ammmath.ApplyPath(u256(10), hops).IsZero())
}

func TestPriceImpactBound(t *testing.T) {
	rIn := u256(1000)
	assert.False(t, ammmath.PriceImpactBound(u256(100), rIn))
	assert.True(t, ammmath.PriceImpactBound(u256(400), rIn))
}
