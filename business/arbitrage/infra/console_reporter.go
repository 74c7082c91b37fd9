// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arbitrage-bot/business/arbitrage/domain"
)

// ConsoleReporter implements app.Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Arbitrage Scanner Started")
	fmt.Fprintln(r.out, "=========================")
	return nil
}

// Report outputs a ranked opportunity to the console.
func (r *ConsoleReporter) Report(opp domain.RankedOpportunity) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "OPPORTUNITY  [%s]  chain=%s (%d)\n", opp.Variant, opp.ChainName, opp.ChainID)
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Block:          #%d\n", opp.BlockNumber)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.Timestamp.Format(time.RFC3339))
	if len(opp.Path) > 0 {
		fmt.Fprintf(r.out, "Path:           %s\n", formatPath(opp.Path))
		fmt.Fprintf(r.out, "DEXes:          %v\n", opp.DEXes)
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "SCORE")
	fmt.Fprintf(r.out, "  Tier:           %s\n", opp.Tier)
	fmt.Fprintf(r.out, "  Score:          %.1f\n", opp.Score)
	fmt.Fprintf(r.out, "  Recommendation: %s\n", opp.Recommendation)
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	if opp.IsProfitable() {
		fmt.Fprintln(r.out, "PROFIT")
		fmt.Fprintf(r.out, "  Net:            $%s\n", opp.NetProfitUSD.StringFixed(2))
		fmt.Fprintf(r.out, "  Gas Cost:       $%s\n", opp.GasCostUSD.StringFixed(2))
	} else {
		fmt.Fprintln(r.out, "SIGNAL")
		for k, v := range opp.Extra {
			fmt.Fprintf(r.out, "  %s: %v\n", k, v)
		}
	}
	fmt.Fprintln(r.out, "================================================================================")
}

func formatPath(path []common.Address) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += " -> "
		}
		s += p.Hex()
	}
	return s
}

// UpdateConnectionStatus outputs connection status changes for a chain.
func (r *ConsoleReporter) UpdateConnectionStatus(chainName string, connected bool, latency time.Duration) {
	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency)
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), chainName, status)
}

// UpdateBlock outputs block number (no-op for console - too noisy).
func (r *ConsoleReporter) UpdateBlock(chainName string, blockNumber uint64) {
	// Console reporter doesn't output every block
}

// UpdateGasPrice outputs gas price (no-op for console - too noisy).
func (r *ConsoleReporter) UpdateGasPrice(chainName string, gweiPrice float64) {
	// Console reporter doesn't output continuous gas updates
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Scanner Stopped")
	return nil
}
