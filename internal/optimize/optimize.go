package optimize

import "math"

const (
	// DefaultIterations is the golden-section iteration count (spec.md §4.10).
	DefaultIterations = 15
	// priceImpactCapRatio bounds x* to 30% of the smallest reserve-in along
	// the path (spec.md §4.10 edge cases).
	priceImpactCapRatio = 0.3
)

// TwoHop optimizes a two-hop path, seeding the golden-section bracket with
// the analytical closed-form optimum before refining (spec.md §4.10 step 1-2).
func TwoHop(f ObjectiveFunc, xMin, xMax float64, reserveInBuy, reserveOutBuy, reserveInSell, reserveOutSell, feeBuy, feeSell float64) Result {
	if xMax <= xMin {
		return Result{}
	}

	searchMin, searchMax := xMin, xMax
	if seed, ok := TwoHopSeed(reserveInBuy, reserveOutBuy, reserveInSell, reserveOutSell, feeBuy, feeSell); ok {
		searchMin, searchMax = Bracket(seed, xMin, xMax)
	}

	result := GoldenSectionSearch(f, searchMin, searchMax, DefaultIterations)
	return capPriceImpact(f, result, reserveInBuy, reserveInSell)
}

// MultiHop optimizes a path of three or more hops over the full interval,
// with no analytical seed available (spec.md §4.10 step 1 "two-hop case
// only").
func MultiHop(f ObjectiveFunc, xMin, xMax float64, smallestReserveIn float64) Result {
	if xMax <= xMin {
		return Result{}
	}
	result := GoldenSectionSearch(f, xMin, xMax, DefaultIterations)
	return capPriceImpact(f, result, smallestReserveIn)
}

// capPriceImpact enforces the hard 30%-of-smallest-reserve-in cap, resolving
// to 0 profit if the cap would reduce x below 0 gain (spec.md §4.10 edge
// cases: "never return an x larger than the smallest reserve-in along the
// path × 0.3").
func capPriceImpact(f ObjectiveFunc, result Result, reserves ...float64) Result {
	if result.X <= 0 {
		return result
	}
	smallest := math.Inf(1)
	for _, r := range reserves {
		if r > 0 && r < smallest {
			smallest = r
		}
	}
	if math.IsInf(smallest, 1) {
		return result
	}
	cap := smallest * priceImpactCapRatio
	if result.X <= cap {
		return result
	}
	cappedProfit := f(cap)
	if cappedProfit <= 0 {
		return Result{X: 0, Profit: 0, Iterations: result.Iterations}
	}
	return Result{X: cap, Profit: cappedProfit, Iterations: result.Iterations}
}
