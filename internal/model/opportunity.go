package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolPrice is the quote of one pool used by a candidate.
type PoolPrice struct {
	PoolID string          `json:"pool_id"`
	Price  decimal.Decimal `json:"price"`
	Fee    decimal.Decimal `json:"fee"`
}

// Candidate is the evaluation of one path in one direction.
type Candidate struct {
	Path      *Path
	Direction Direction
	ProfitPct decimal.Decimal
	GrossPct  decimal.Decimal
	Output    decimal.Decimal
	Prices    []PoolPrice
	Evaluated bool
	Reason    string
}

// PathID returns the id of the evaluated path.
func (c Candidate) PathID() int {
	if c.Path == nil {
		return 0
	}
	return c.Path.ID
}

// Route describes the candidate's traversal.
func (c Candidate) Route() string {
	if c.Path == nil {
		return ""
	}
	return c.Path.Describe(c.Direction)
}

// Opportunity is the selected candidate of a cycle.
type Opportunity struct {
	ID         string
	PathID     int
	Direction  Direction
	Route      string
	Base       string
	ProfitPct  decimal.Decimal
	TradeSize  decimal.Decimal
	Prices     []PoolPrice
	DetectedAt time.Time
}

// Signal converts the opportunity into the outbound record.
func (o Opportunity) Signal() Signal {
	return Signal{
		ID:          o.ID,
		Base:        o.Base,
		Route:       o.Route,
		PathID:      o.PathID,
		Direction:   o.Direction.String(),
		ProfitPct:   o.ProfitPct,
		TradeSize:   o.TradeSize,
		TimestampMs: o.DetectedAt.UnixMilli(),
	}
}

// Signal is the record handed to execution or alerting consumers.
type Signal struct {
	ID          string          `json:"id"`
	Base        string          `json:"base"`
	Route       string          `json:"route"`
	PathID      int             `json:"path_id"`
	Direction   string          `json:"direction"`
	ProfitPct   decimal.Decimal `json:"profit_pct"`
	TradeSize   decimal.Decimal `json:"trade_size"`
	TimestampMs int64           `json:"timestamp_ms"`
}
