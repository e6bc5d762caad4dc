package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CycleRecord is written once per evaluation cycle, whether or not an
// opportunity was emitted.
type CycleRecord struct {
	Serial        uint64             `json:"serial"`
	Timestamp     time.Time          `json:"timestamp"`
	Prices        []PoolPrice        `json:"prices"`
	// SpreadAbs is the price gap between the two pools of a 1-hop route and
	// zero for deeper routes. SpreadPct is the gap relative to the lower
	// price, or the fee-free return for deeper routes.
	SpreadAbs     decimal.Decimal    `json:"spread_abs"`
	SpreadPct     decimal.Decimal    `json:"spread_pct"`
	NetProfitPct  decimal.Decimal    `json:"net_profit_pct"`
	TradePossible bool               `json:"trade_possible"`
	FailureReason string             `json:"failure_reason,omitempty"`
	BestPathID    int                `json:"best_path_id,omitempty"`
	BestDirection string             `json:"best_direction,omitempty"`
	BestRoute     string             `json:"best_route,omitempty"`
	Evaluated     int                `json:"evaluated"`
	Skipped       int                `json:"skipped"`
	Candidates    []CandidateSummary `json:"candidates"`
}

// CandidateSummary keeps the per-direction outcome of a cycle.
type CandidateSummary struct {
	PathID    int             `json:"path_id"`
	Direction string          `json:"direction"`
	ProfitPct decimal.Decimal `json:"profit_pct"`
	Skipped   bool            `json:"skipped,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}
