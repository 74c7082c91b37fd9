// Package eventbus decodes on-chain swap/sync/mint/burn events and fans them
// out to per-pool-debounced reserve updates and swap notifications
// (spec.md §4.3).
package eventbus

import "github.com/ethereum/go-ethereum/common"

// Event topics (keccak-256 of signatures), fixed per spec.md §6.
var (
	TopicV2Sync = common.HexToHash("0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1")
	TopicV2Swap = common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	TopicV3Swap = common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")

	// V3 Mint/Burn topics, used by the JIT detector (spec.md §4.9). These are
	// the standard Uniswap V3 pool ABI event signatures.
	TopicV3Mint = common.HexToHash("0x7a53080ba414158be7ec69b987b5fb7d07dee101fe85488f0853ae16239d0bde")
	TopicV3Burn = common.HexToHash("0x0c396cd989a39f4459b5fa1aed6a9a8dcdbc45908acfd67e028cd568da98982c")
)

// LargeSwapThresholdUSD is the default threshold above which a V2/V3 Swap is
// exposed for large-swap tracking rather than silently dropped (spec.md §4.3).
const LargeSwapThresholdUSD = 1000.0
