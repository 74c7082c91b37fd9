// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"time"

	"github.com/fd1az/arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-bot/pkg/ui"
)

// TUIReporter implements app.Reporter for Bubble Tea TUI.
type TUIReporter struct {
	started bool
}

// NewTUIReporter creates a new TUIReporter.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{}
}

// Start initializes the TUI reporter.
// Note: The actual TUI program should be started separately in main.go
// This reporter just sends messages to the already-running program.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.started = true
	ui.Send(ui.StartupMsg{Step: "config", Status: "done"})
	return nil
}

// UpdateStartup sends startup progress to the TUI.
func (r *TUIReporter) UpdateStartup(step, status, message string) {
	if !r.started {
		return
	}
	ui.Send(ui.StartupMsg{
		Step:    step,
		Status:  status,
		Message: message,
	})
}

// Report sends a ranked opportunity to the TUI.
func (r *TUIReporter) Report(opp domain.RankedOpportunity) {
	if !r.started {
		return
	}
	ui.Send(ui.OpportunityMsg{Opportunity: opp})
}

// UpdateConnectionStatus sends a chain's connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(chainName string, connected bool, latency time.Duration) {
	if !r.started {
		return
	}
	ui.Send(ui.ConnectionStatusMsg{
		ChainName: chainName,
		Connected: connected,
		Latency:   latency,
	})
}

// UpdateBlock sends a chain's current block number to the TUI.
func (r *TUIReporter) UpdateBlock(chainName string, blockNumber uint64) {
	if !r.started {
		return
	}
	ui.Send(ui.BlockMsg{
		ChainName: chainName,
		Number:    blockNumber,
		Timestamp: time.Now(),
	})
}

// UpdateGasPrice sends a chain's gas price to the TUI.
func (r *TUIReporter) UpdateGasPrice(chainName string, gweiPrice float64) {
	if !r.started {
		return
	}
	ui.Send(ui.GasPriceMsg{
		ChainName: chainName,
		GweiPrice: gweiPrice,
	})
}

// Stop gracefully shuts down the TUI reporter.
func (r *TUIReporter) Stop() error {
	r.started = false
	return nil
}
