// Package ethereum implements chainfeed's BulkReader and log-subscription
// adapters against a live EVM chain (spec.md §4.4/§6).
package ethereum

import (
	"github.com/ethereum/go-ethereum/common"
)

// Multicall3Address is the canonical Multicall3 deployment address, the
// same on every chain it has been deployed to (Ethereum, Polygon,
// Arbitrum, Optimism, Base, ...).
const Multicall3Address = "0xcA11bde05977b3631167028862bE2a173976CA11"

// Multicall3ABI covers only aggregate3, the allow-partial-failure batch
// call chainfeed needs so one reverting pool doesn't fail the whole poll.
const Multicall3ABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "target", "type": "address"},
					{"internalType": "bool", "name": "allowFailure", "type": "bool"},
					{"internalType": "bytes", "name": "callData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Call3[]",
				"name": "calls",
				"type": "tuple[]"
			}
		],
		"name": "aggregate3",
		"outputs": [
			{
				"components": [
					{"internalType": "bool", "name": "success", "type": "bool"},
					{"internalType": "bytes", "name": "returnData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Result[]",
				"name": "returnData",
				"type": "tuple[]"
			}
		],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// V2PairABI covers getReserves(), the only call chainfeed needs against a
// constant-product (Uniswap V2 / Solidly / fork) pool.
const V2PairABI = `[
	{
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "reserve1", "type": "uint112"},
			{"internalType": "uint32", "name": "blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// V3PoolABI covers slot0() and liquidity(), the two calls chainfeed needs
// against a concentrated-liquidity (Uniswap V3 / fork) pool.
const V3PoolABI = `[
	{
		"inputs": [],
		"name": "slot0",
		"outputs": [
			{"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
			{"internalType": "int24", "name": "tick", "type": "int24"},
			{"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
			{"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
			{"internalType": "bool", "name": "unlocked", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "liquidity",
		"outputs": [
			{"internalType": "uint128", "name": "", "type": "uint128"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// call3 mirrors Multicall3.Call3 for abi.Pack.
type call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// result3 mirrors Multicall3.Result, used both for abi.Pack/UnpackIntoInterface
// on aggregate3's return and as ReadAll's internal per-call result type.
type result3 struct {
	Success    bool
	ReturnData []byte
}
