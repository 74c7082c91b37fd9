// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	detect "github.com/fd1az/arbitrage-bot/internal/detect/common"
)

// RankedOpportunity is a detected opportunity tagged with the chain it was
// found on, the form in which the chain worker hands each detector result
// to a Reporter (spec.md §4.16). Opportunities from different chains are
// not ranked against each other.
type RankedOpportunity struct {
	detect.Opportunity
	ChainID   uint64
	ChainName string
}

// IsProfitable reports whether this opportunity carries a positive
// NetProfitUSD. Non-execution signals (stablecoin depeg records, LSD
// deviation flags) never carry a positive NetProfitUSD, so they read as
// not profitable here even when still worth reporting.
func (o RankedOpportunity) IsProfitable() bool {
	return o.NetProfitUSD.IsPositive()
}
