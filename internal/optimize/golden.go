// Package optimize implements the arbitrage optimizer (spec.md §4.10):
// given a hop-simulation closure and a bounded interval known to bracket a
// unimodal profit curve, find the profit-maximizing input amount.
package optimize

import "math"

// invPhi and invPhi2 are the two golden-section split ratios.
const (
	invPhi  = 0.6180339887498949 // (sqrt(5)-1)/2
	invPhi2 = 0.3819660112501051 // invPhi^2
)

// ObjectiveFunc maps an input amount (in base-token units) to the net
// profit of executing the path at that input, in base-token units. It must
// already account for the flash-loan fee (spec.md §4.10 step 3).
type ObjectiveFunc func(x float64) float64

// Result is the outcome of an optimization run.
type Result struct {
	X          float64
	Profit     float64
	Iterations int
}

// GoldenSectionSearch finds the x in [xMin, xMax] maximizing f, assuming f
// is unimodal on that interval (spec.md §4.10 "AMM profit is unimodal").
// Terminates after maxIterations or once the bracket narrows below 1% of
// xMin, whichever comes first.
func GoldenSectionSearch(f ObjectiveFunc, xMin, xMax float64, maxIterations int) Result {
	if xMax <= xMin {
		return Result{}
	}

	a, b := xMin, xMax
	minWidth := 0.01 * xMin
	if minWidth <= 0 {
		minWidth = 1e-9
	}

	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc := f(c)
	fd := f(d)

	iterations := 0
	for i := 0; i < maxIterations; i++ {
		iterations++
		if (b - a) < minWidth {
			break
		}
		if fc > fd {
			b = d
			d = c
			fd = fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a = c
			c = d
			fc = fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}

	x := (a + b) / 2
	fx := f(x)

	// Golden-section only guarantees the bracket contains the peak; compare
	// against the best sample actually evaluated to avoid returning a worse
	// midpoint (spec.md invariant: f(x*) >= max(f(xMin), f(xMax))).
	best := x
	bestF := fx
	for _, cand := range []struct {
		x float64
		f float64
	}{{c, fc}, {d, fd}} {
		if cand.f > bestF {
			best, bestF = cand.x, cand.f
		}
	}

	fMin := f(xMin)
	fMax := f(xMax)
	if fMin > bestF {
		best, bestF = xMin, fMin
	}
	if fMax > bestF {
		best, bestF = xMax, fMax
	}

	if bestF <= 0 || math.IsNaN(bestF) {
		return Result{X: 0, Profit: 0, Iterations: iterations}
	}

	return Result{X: best, Profit: bestF, Iterations: iterations}
}
