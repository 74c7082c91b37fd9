// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ChainRow represents one monitored chain's live status.
type ChainRow struct {
	Name           string
	Connected      bool
	Latency        string
	BlockNumber    uint64
	GasPriceGwei   float64
	Opportunities  uint64
}

// PricesComponent renders the per-chain connection/status table. Despite the
// file name (kept from its single-chain CEX/DEX price-table ancestor) it no
// longer renders prices: with N chains and M DEXes per chain there is no
// single spread worth a fixed-width table, so this now shows what's common
// across every chain instead — connectivity, block height, gas.
type PricesComponent struct {
	rows []ChainRow
}

// NewPricesComponent creates a new chain-status component.
func NewPricesComponent() *PricesComponent {
	return &PricesComponent{
		rows: make([]ChainRow, 0),
	}
}

// SetChain upserts a single chain's row by name.
func (p *PricesComponent) SetChain(row ChainRow) {
	for i := range p.rows {
		if p.rows[i].Name == row.Name {
			p.rows[i] = row
			return
		}
	}
	p.rows = append(p.rows, row)
}

// View renders the chain status component.
func (p *PricesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var result string
	result = headerStyle.Render("CHAINS")
	result += "\n\n"

	if len(p.rows) == 0 {
		return result + dimStyle.Render("  Waiting for chain connections...") + "\n"
	}

	result += fmt.Sprintf("  %-10s  %8s  %12s  %10s  %6s\n",
		"Chain", "Status", "Block", "Gas(gwei)", "Opps")
	result += dimStyle.Render("  " + strings.Repeat("─", 56)) + "\n"

	for _, row := range p.rows {
		statusStyle := negativeStyle
		status := "down"
		if row.Connected {
			statusStyle = positiveStyle
			status = "up"
			if row.Latency != "" {
				status = status + " " + row.Latency
			}
		}

		result += fmt.Sprintf("  %-10s  %s  %12d  %10.1f  %6d\n",
			row.Name,
			statusStyle.Render(fmt.Sprintf("%8s", status)),
			row.BlockNumber,
			row.GasPriceGwei,
			row.Opportunities,
		)
	}

	return result
}
