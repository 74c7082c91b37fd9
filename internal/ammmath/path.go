package ammmath

import "github.com/holiman/uint256"

// Hop is one leg of a multi-hop path: the reserves of the DEX edge being
// traversed and its own fee, per spec.md §4.1 "use the fee of the actual DEX
// at each hop, not a global fee."
type Hop struct {
	ReserveIn  *uint256.Int
	ReserveOut *uint256.Int
	Fee        FeeNumerator
}

// ApplyPath feeds aIn through each hop in sequence, each hop's output
// becoming the next hop's input, per spec.md §4.1 "Multi-hop execution".
// Returns zero the moment any hop yields zero (inadmissible edge).
func ApplyPath(aIn *uint256.Int, hops []Hop) *uint256.Int {
	amount := aIn
	for _, hop := range hops {
		amount = V2AmountOut(amount, hop.ReserveIn, hop.ReserveOut, hop.Fee)
		if amount.IsZero() {
			return uint256.NewInt(0)
		}
	}
	return amount
}
