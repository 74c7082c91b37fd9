// Package ui provides the Bubble Tea TUI for the arbitrage scanner.
package ui

import (
	"time"

	"github.com/fd1az/arbitrage-bot/business/arbitrage/domain"
)

// Message types for TUI updates

// OpportunityMsg is sent when a ranked opportunity is detected on any chain.
type OpportunityMsg struct {
	Opportunity domain.RankedOpportunity
}

// ConnectionStatusMsg is sent when a chain's connection status changes.
type ConnectionStatusMsg struct {
	ChainName string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new block is received on a chain.
type BlockMsg struct {
	ChainName string
	Number    uint64
	Timestamp time.Time
}

// GasPriceMsg is sent when a chain's gas price is updated.
type GasPriceMsg struct {
	ChainName string
	GweiPrice float64
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// WelcomeCompleteMsg signals the welcome screen is done (timeout or keypress).
type WelcomeCompleteMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed"
	Message string // Optional message
}
