package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	gethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	chainfeedapp "github.com/fd1az/arbitrage-bot/business/chainfeed/app"
	"github.com/fd1az/arbitrage-bot/business/chainfeed/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/ratelimit"
)

// BulkReader implements chainfeed/app.BulkReader via a single
// Multicall3.aggregate3 batch covering every configured pool (spec.md §6):
// one getReserves() call per v2 pool, one slot0()+liquidity() pair per v3
// pool. Grounded on business/pricing/infra/uniswap.Provider's
// abi.Pack/CallContract/abi.Unpack sequence, batched through Multicall3
// instead of one eth_call per pool so the initial poll and periodic
// re-polls stay a single round trip regardless of pool count.
type BulkReader struct {
	client       *ethclient.Client
	multicall    common.Address
	multicallABI abi.ABI
	v2ABI        abi.ABI
	v3ABI        abi.ABI
	cb           *circuitbreaker.CircuitBreaker[[]byte]
	limiter      *ratelimit.Limiter
	log          logger.LoggerInterface
}

// NewBulkReader builds a BulkReader against the given chain's Multicall3
// deployment (Multicall3Address unless the chain config overrides it).
// rpm throttles ReadAll's round trips to the chain's configured RPC budget
// (spec.md §6, ChainConfig.RateLimitRPM); rpm <= 0 disables throttling.
func NewBulkReader(client *ethclient.Client, multicallAddress string, rpm int, log logger.LoggerInterface) (*BulkReader, error) {
	if multicallAddress == "" {
		multicallAddress = Multicall3Address
	}
	if !common.IsHexAddress(multicallAddress) {
		return nil, fmt.Errorf("chainfeed: invalid multicall address %q", multicallAddress)
	}

	multicallABI, err := abi.JSON(strings.NewReader(Multicall3ABI))
	if err != nil {
		return nil, fmt.Errorf("parse multicall3 abi: %w", err)
	}
	v2ABI, err := abi.JSON(strings.NewReader(V2PairABI))
	if err != nil {
		return nil, fmt.Errorf("parse v2 pair abi: %w", err)
	}
	v3ABI, err := abi.JSON(strings.NewReader(V3PoolABI))
	if err != nil {
		return nil, fmt.Errorf("parse v3 pool abi: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("chainfeed-bulkreader")
	var limiter *ratelimit.Limiter
	if rpm > 0 {
		limiter = ratelimit.New(rpm)
	}
	return &BulkReader{
		client:       client,
		multicall:    common.HexToAddress(multicallAddress),
		multicallABI: multicallABI,
		v2ABI:        v2ABI,
		v3ABI:        v3ABI,
		cb:           circuitbreaker.New[[]byte](cbCfg),
		limiter:      limiter,
		log:          log,
	}, nil
}

// callPlan remembers which pool/field a batched call result belongs to so
// ReadAll can stitch the flat aggregate3 response back into PoolSnapshots.
type callPlan struct {
	poolIndex int
	field     string // "v2reserves", "v3slot0", "v3liquidity"
}

// ReadAll implements chainfeed/app.BulkReader.
func (r *BulkReader) ReadAll(ctx context.Context, pools []chainfeedapp.PoolRef) ([]domain.PoolSnapshot, error) {
	if len(pools) == 0 {
		return nil, nil
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("chainfeed bulk read: rate limit wait: %w", err)
		}
	}

	blockNumber, err := r.client.BlockNumber(ctx)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(err),
			apperror.WithContext("chainfeed bulk read: fetch block number"))
	}

	var calls []call3
	var plan []callPlan

	for i, p := range pools {
		switch config.DEXFamily(p.Family) {
		case config.FamilyConcentratedV3:
			slot0Data, err := r.v3ABI.Pack("slot0")
			if err != nil {
				return nil, fmt.Errorf("pack slot0 for %s: %w", p.Pool.Hex(), err)
			}
			liqData, err := r.v3ABI.Pack("liquidity")
			if err != nil {
				return nil, fmt.Errorf("pack liquidity for %s: %w", p.Pool.Hex(), err)
			}
			calls = append(calls, call3{Target: p.Pool, AllowFailure: true, CallData: slot0Data})
			plan = append(plan, callPlan{poolIndex: i, field: "v3slot0"})
			calls = append(calls, call3{Target: p.Pool, AllowFailure: true, CallData: liqData})
			plan = append(plan, callPlan{poolIndex: i, field: "v3liquidity"})
		default:
			reservesData, err := r.v2ABI.Pack("getReserves")
			if err != nil {
				return nil, fmt.Errorf("pack getReserves for %s: %w", p.Pool.Hex(), err)
			}
			calls = append(calls, call3{Target: p.Pool, AllowFailure: true, CallData: reservesData})
			plan = append(plan, callPlan{poolIndex: i, field: "v2reserves"})
		}
	}

	results, err := r.aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}
	if len(results) != len(plan) {
		return nil, fmt.Errorf("chainfeed bulk read: expected %d results, got %d", len(plan), len(results))
	}

	snapshots := make([]domain.PoolSnapshot, len(pools))
	populated := make([]bool, len(pools))
	for i, p := range pools {
		snapshots[i] = domain.PoolSnapshot{
			Pool:        p.Pool,
			DEXName:     p.DEXName,
			Family:      p.Family,
			BlockNumber: blockNumber,
		}
	}

	for i, res := range results {
		pl := plan[i]
		if !res.Success {
			continue
		}
		switch pl.field {
		case "v2reserves":
			outputs, err := r.v2ABI.Unpack("getReserves", res.ReturnData)
			if err != nil || len(outputs) < 2 {
				continue
			}
			snapshots[pl.poolIndex].Reserve0 = toUint256(outputs[0])
			snapshots[pl.poolIndex].Reserve1 = toUint256(outputs[1])
			snapshots[pl.poolIndex].SwapFee = pools[pl.poolIndex].SwapFee
			populated[pl.poolIndex] = true
		case "v3slot0":
			outputs, err := r.v3ABI.Unpack("slot0", res.ReturnData)
			if err != nil || len(outputs) < 2 {
				continue
			}
			snapshots[pl.poolIndex].SqrtPriceX96 = toUint256(outputs[0])
			if tick, ok := outputs[1].(*big.Int); ok {
				snapshots[pl.poolIndex].Tick = int32(tick.Int64())
			}
			snapshots[pl.poolIndex].FeeTier = pools[pl.poolIndex].FeeTier
			populated[pl.poolIndex] = true
		case "v3liquidity":
			outputs, err := r.v3ABI.Unpack("liquidity", res.ReturnData)
			if err != nil || len(outputs) < 1 {
				continue
			}
			snapshots[pl.poolIndex].Liquidity = toUint256(outputs[0])
			populated[pl.poolIndex] = true
		}
	}

	out := make([]domain.PoolSnapshot, 0, len(snapshots))
	for i, ok := range populated {
		if ok {
			out = append(out, snapshots[i])
		}
	}
	return out, nil
}

// aggregate3Out mirrors aggregate3's single named return ("returnData"),
// decoded via UnpackIntoInterface rather than a type-assertion off Unpack's
// []interface{} since the return is a tuple array, not a flat list of
// scalar outputs the way quoteExactInputSingle's return is.
type aggregate3Out struct {
	ReturnData []result3
}

func (r *BulkReader) aggregate(ctx context.Context, calls []call3) ([]result3, error) {
	callData, err := r.multicallABI.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	raw, err := r.cb.Execute(func() ([]byte, error) {
		return r.client.CallContract(ctx, gethereum.CallMsg{
			To:   &r.multicall,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err),
			apperror.WithContext("multicall3 aggregate3 failed"))
	}

	var out aggregate3Out
	if err := r.multicallABI.UnpackIntoInterface(&out, "aggregate3", raw); err != nil {
		return nil, fmt.Errorf("unpack aggregate3 result: %w", err)
	}

	return out.ReturnData, nil
}

// toUint256 converts an Unpack'd *big.Int output into a *uint256.Int,
// matching the type every other PoolSnapshot reserve/price field uses.
func toUint256(v interface{}) *uint256.Int {
	bi, ok := v.(*big.Int)
	if !ok || bi == nil {
		return uint256.NewInt(0)
	}
	out, overflow := uint256.FromBig(bi)
	if overflow {
		return uint256.NewInt(0)
	}
	return out
}
