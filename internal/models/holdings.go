// Package models defines the data structures shared across folio services.
package models

import "time"

// Holding represents a single portfolio position.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Shares       float64 `json:"shares"`
	AverageCost  float64 `json:"average_cost"`
	CurrentPrice float64 `json:"current_price"`
	MarketValue  float64 `json:"market_value"`
	Sector       string  `json:"sector,omitempty"`
}

// HoldingsSource identifies where a holdings snapshot came from.
type HoldingsSource string

const (
	// HoldingsSourceEndpoint indicates holdings fetched from the configured endpoint.
	HoldingsSourceEndpoint HoldingsSource = "endpoint"
	// HoldingsSourceMock indicates the built-in mock portfolio was substituted.
	HoldingsSourceMock HoldingsSource = "mock"
)

// HoldingsSnapshot is a normalized set of holdings with provenance metadata.
type HoldingsSnapshot struct {
	Holdings   []Holding      `json:"holdings"`
	Source     HoldingsSource `json:"source"`
	TotalValue float64        `json:"total_value"`
	FetchedAt  time.Time      `json:"fetched_at"`
}

// Count returns the number of holdings in the snapshot.
func (s *HoldingsSnapshot) Count() int {
	return len(s.Holdings)
}

// Symbols returns the holding symbols in snapshot order.
func (s *HoldingsSnapshot) Symbols() []string {
	symbols := make([]string, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		symbols = append(symbols, h.Symbol)
	}
	return symbols
}
