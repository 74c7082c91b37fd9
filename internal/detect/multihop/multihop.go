// Package multihop implements the C7 detector: bounded depth-first search
// over cycles of length 3..L_max starting and ending at a base token
// (spec.md §4.7).
package multihop

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
	"github.com/fd1az/arbitrage-bot/internal/optimize"
	"github.com/fd1az/arbitrage-bot/internal/pricegraph"
)

const (
	// defaultMaxCycleLength is L_max (spec.md §4.7: "default 5").
	defaultMaxCycleLength = 5
	// defaultMaxCyclesVisited caps total DFS cycles explored per call
	// (spec.md §4.7: "default 1000").
	defaultMaxCyclesVisited = 1000
	// optimisticRatePerHop is the generous per-hop rate assumed for the
	// remaining, unexplored hops of a partial path when deciding whether to
	// keep searching (spec.md §4.7 "generous optimistic rate").
	optimisticRatePerHop = 1.05
)

// Detector finds multi-hop cycles of 3 to L_max hops (spec.md §4.7).
type Detector struct{}

func New() *Detector { return &Detector{} }

var _ detect.Detector = (*Detector)(nil)

type searchState struct {
	g          *pricegraph.Graph
	cfg        detect.DetectConfig
	filter     pricegraph.Filter
	maxLen     int
	maxVisited int
	visited    int
	threshold  float64
	out        []detect.Opportunity
}

func (d *Detector) Detect(ctx context.Context, g *pricegraph.Graph, cfg detect.DetectConfig) []detect.Opportunity {
	maxLen := cfg.MaxCycleLength
	if maxLen <= 0 {
		maxLen = defaultMaxCycleLength
	}
	maxVisited := cfg.MaxCyclesVisited
	if maxVisited <= 0 {
		maxVisited = defaultMaxCyclesVisited
	}

	st := &searchState{
		g:          g,
		cfg:        cfg,
		filter:     detect.EdgeFilter(cfg.LiquidityFloors.MultiHop, detect.DefaultMultiHopLiquidityUSD),
		maxLen:     maxLen,
		maxVisited: maxVisited,
		threshold:  1 + cfg.MinProfitPercent/100,
	}

	for _, base := range cfg.BaseTokens {
		select {
		case <-ctx.Done():
			return st.out
		default:
		}
		st.dfs(base, []common.Address{base}, nil, 1.0, make(map[common.Address]bool, maxLen))
	}
	return st.out
}

// dfs walks one partial path, emitting an opportunity whenever it closes
// back at base with length >= 3, and pruning branches whose best-case rate
// product cannot clear the profit threshold (spec.md §4.7).
func (st *searchState) dfs(base common.Address, path []common.Address, edges []*pricegraph.Edge, rateProduct float64, visited map[common.Address]bool) {
	if st.visited >= st.maxVisited {
		return
	}
	current := path[len(path)-1]
	visited[current] = true
	defer delete(visited, current)

	for _, nb := range st.g.Neighbors(current, st.filter) {
		st.visited++
		if st.visited > st.maxVisited {
			return
		}

		edge := bestRate(nb.Edges)
		if edge == nil {
			continue
		}
		nextProduct := rateProduct * spotRate(edge)

		if nb.Neighbor == base {
			if len(path) >= 3 {
				st.tryEmit(append(append([]common.Address{}, path...), base), append(append([]*pricegraph.Edge{}, edges...), edge))
			}
			continue
		}

		if visited[nb.Neighbor] {
			continue // no repeated intermediates (spec.md §4.7)
		}
		if len(path) >= st.maxLen {
			continue // no room for another hop plus the mandatory return
		}

		remainingHops := st.maxLen - len(path)
		optimisticBest := nextProduct
		for i := 0; i < remainingHops; i++ {
			optimisticBest *= optimisticRatePerHop
		}
		if optimisticBest <= st.threshold {
			continue // even a generous assumption can't clear the bar
		}

		st.dfs(base, append(path, nb.Neighbor), append(edges, edge), nextProduct, visited)
	}
}

// tryEmit refines a closed candidate cycle with the golden-section
// optimizer and appends it if genuinely profitable.
func (st *searchState) tryEmit(path []common.Address, edges []*pricegraph.Edge) {
	if len(edges) == 0 {
		return
	}
	xMax := detect.BoundInput(st.cfg, path[0], edges[0].Quoter.MaxInputBound())
	if xMax <= 0 {
		return
	}
	xMin := xMax * 1e-6
	if xMin <= 0 {
		xMin = 1
	}

	objective := func(x float64) float64 {
		aIn := detect.FromFloat64(x)
		if aIn.IsZero() {
			return 0
		}
		amount := aIn
		for _, e := range edges {
			amount = e.Quoter.AmountOut(amount)
			if amount.IsZero() {
				return 0
			}
		}
		if amount.Cmp(aIn) <= 0 {
			return -1
		}
		profit := detect.ToFloat64(new(uint256.Int).Sub(amount, aIn))
		return profit - detect.FlashLoanFee(st.cfg, x)
	}

	smallest := smallestReserveIn(edges)
	result := optimize.MultiHop(objective, xMin, xMax, smallest)
	if result.X <= 0 || result.Profit <= 0 {
		return
	}

	inputAmt := detect.FromFloat64(result.X)
	amount := inputAmt
	estimated := false
	for _, e := range edges {
		amount = e.Quoter.AmountOut(amount)
		estimated = estimated || e.Quoter.Estimated()
	}
	if amount.Cmp(inputAmt) <= 0 {
		return
	}
	profitRatio := detect.ToFloat64(amount)/detect.ToFloat64(inputAmt) - 1
	if profitRatio*100 < st.cfg.MinProfitPercent {
		return
	}

	grossProfit := new(uint256.Int).Sub(amount, inputAmt)
	grossProfit = detect.DiscountEstimated(st.cfg, estimated, grossProfit)
	dexNames := make([]string, len(edges))
	minLiq := edges[0].LiquidityUSD
	for i, e := range edges {
		dexNames[i] = e.DEXName
		if e.LiquidityUSD < minLiq {
			minLiq = e.LiquidityUSD
		}
	}

	st.out = append(st.out, detect.Opportunity{
		Variant:         detect.VariantMultiHop,
		Path:            append([]common.Address{}, path...),
		DEXes:           dexNames,
		InputAmount:     inputAmt,
		ExpectedOutput:  amount,
		GrossProfit:     grossProfit,
		Estimated:       estimated,
		MinLiquidityUSD: minLiq,
		BlockNumber:     st.cfg.BlockNumber,
		Timestamp:       st.cfg.Now,
	})
}

func spotRate(e *pricegraph.Edge) float64 {
	return detect.ToFloat64(e.Quoter.SpotPriceScaled()) / 1e18 * detect.FeeFraction(e.Quoter)
}

func bestRate(edges []*pricegraph.Edge) *pricegraph.Edge {
	var best *pricegraph.Edge
	var bestVal float64
	for _, e := range edges {
		r := spotRate(e)
		if best == nil || r > bestVal {
			best, bestVal = e, r
		}
	}
	return best
}

func smallestReserveIn(edges []*pricegraph.Edge) float64 {
	smallest := 0.0
	for _, e := range edges {
		if v2, ok := e.Quoter.(*pricegraph.V2Quoter); ok {
			r := detect.ToFloat64(v2.ReserveIn)
			if smallest == 0 || r < smallest {
				smallest = r
			}
		}
	}
	return smallest
}
