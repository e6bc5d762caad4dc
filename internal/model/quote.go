package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the canonical price state of a pool: the price of token A in token B
// together with the fee in effect. Quotes are replaced whole, never mutated.
type Quote struct {
	PoolID    string          `json:"pool_id"`
	Price     decimal.Decimal `json:"price"`
	Fee       decimal.Decimal `json:"fee"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Slot      uint64          `json:"slot"`
	Seq       uint64          `json:"seq"`
	UpdatedAt time.Time       `json:"updated_at"`
	Valid     bool            `json:"valid"`
	Err       string          `json:"error,omitempty"`
}

// Age returns how old the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	if q.UpdatedAt.IsZero() {
		return 0
	}
	return now.Sub(q.UpdatedAt)
}
