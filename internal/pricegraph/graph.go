package pricegraph

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NeighborEdges is one entry of the materialized neighbor list Neighbors
// returns. Go favors explicit slices over generator/iterator protocols, so
// this stands in for spec.md §4.2's "iterator over (neighbor, edge list)".
type NeighborEdges struct {
	Neighbor common.Address
	Edges    []*Edge
}

// Graph is the per-chain token-keyed directed multigraph described in
// spec.md §4.2. It is a single-owner structure: exactly one chain worker
// task writes to it (spec.md §5), guarded here by an RWMutex so readers
// (detectors, the TUI) can take consistent snapshots without blocking the
// writer for long, mirroring internal/asset/registry.go's pattern.
type Graph struct {
	mu   sync.RWMutex
	out  map[common.Address]map[common.Address][]*Edge
	byID map[edgeKey]*Edge // DEXName+From+To -> edge, for O(1) idempotent upsert
}

type edgeKey struct {
	from, to common.Address
	dex      string
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		out:  make(map[common.Address]map[common.Address][]*Edge),
		byID: make(map[edgeKey]*Edge),
	}
}

// Upsert inserts or replaces the edge for (from, to, dex). Per spec.md §5
// ordering guarantees, an update whose BlockNumber is older than the
// currently stored snapshot for that edge is discarded (stale, not applied);
// applying the identical snapshot twice is a no-op either way (idempotent).
func (g *Graph) Upsert(edge *Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := edgeKey{from: edge.From, to: edge.To, dex: edge.DEXName}
	if existing, ok := g.byID[key]; ok {
		if edge.BlockNumber < existing.BlockNumber {
			return
		}
		*existing = *edge
		return
	}

	g.byID[key] = edge
	if g.out[edge.From] == nil {
		g.out[edge.From] = make(map[common.Address][]*Edge)
	}
	g.out[edge.From][edge.To] = append(g.out[edge.From][edge.To], edge)
}

// Remove deletes the edge for (from, to, dex), pruning it rather than
// leaving a zero-reserve placeholder (spec.md §3 invariant).
func (g *Graph) Remove(from, to common.Address, dex string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := edgeKey{from: from, to: to, dex: dex}
	delete(g.byID, key)

	edges := g.out[from][to]
	for i, e := range edges {
		if e.DEXName == dex {
			g.out[from][to] = append(edges[:i], edges[i+1:]...)
			break
		}
	}
	if len(g.out[from][to]) == 0 {
		delete(g.out[from], to)
	}
}

// Filter is a per-call admissibility predicate (spec.md §4.2's liquidity
// filter): edges failing it are excluded from Neighbors/Edges results.
type Filter func(*Edge) bool

// AlwaysAdmit admits every edge.
func AlwaysAdmit(*Edge) bool { return true }

// MinLiquidityUSD returns a Filter admitting only edges whose LiquidityUSD
// meets or exceeds minUSD.
func MinLiquidityUSD(minUSD float64) Filter {
	return func(e *Edge) bool { return e.LiquidityUSD >= minUSD }
}

// Neighbors returns the materialized out-neighbors of token, each carrying
// its admissible DEX edges (spec.md §4.2: O(1) amortized).
func (g *Graph) Neighbors(token common.Address, filter Filter) []NeighborEdges {
	if filter == nil {
		filter = AlwaysAdmit
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	neighbors := g.out[token]
	result := make([]NeighborEdges, 0, len(neighbors))
	for to, edges := range neighbors {
		admitted := filterEdges(edges, filter)
		if len(admitted) > 0 {
			result = append(result, NeighborEdges{Neighbor: to, Edges: admitted})
		}
	}
	return result
}

// Edges returns the admissible DEX edges directed from -> to (spec.md §4.2:
// O(k), k = number of DEXes quoting the pair).
func (g *Graph) Edges(from, to common.Address, filter Filter) []*Edge {
	if filter == nil {
		filter = AlwaysAdmit
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterEdges(g.out[from][to], filter)
}

func filterEdges(edges []*Edge, filter Filter) []*Edge {
	result := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		if filter(e) {
			result = append(result, e)
		}
	}
	return result
}

// Tokens returns every token that currently has at least one outbound edge.
func (g *Graph) Tokens() []common.Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	tokens := make([]common.Address, 0, len(g.out))
	for t := range g.out {
		tokens = append(tokens, t)
	}
	return tokens
}
