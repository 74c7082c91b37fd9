// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-bot/business/arbitrage/domain"
)

// TokenPriceOracle supplies a dynamic USD reference rate for a token, the
// collaborator internal/profitmodel's Input.BaseTokenUSD is built from
// (spec.md §4.11: "never hardcodes a token price"). Injected rather than
// read from a hardcoded table, the same way lsd.ProtocolRateProvider is.
type TokenPriceOracle interface {
	USDPrice(ctx context.Context, chainID uint64, token common.Address) (decimal.Decimal, bool)
}

// Reporter defines the interface for reporting ranked arbitrage
// opportunities across every configured chain.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report sends a ranked opportunity to be displayed/logged.
	Report(opp domain.RankedOpportunity)

	// UpdateConnectionStatus updates a chain's connection status display.
	UpdateConnectionStatus(chainName string, connected bool, latency time.Duration)

	// UpdateBlock updates the current block number for a chain.
	UpdateBlock(chainName string, blockNumber uint64)

	// UpdateGasPrice updates the current gas price in gwei for a chain.
	UpdateGasPrice(chainName string, gweiPrice float64)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
