package arb

import (
	"github.com/shopspring/decimal"

	"poolarb/internal/model"
)

// Selector picks the best qualifying candidate of a cycle.
type Selector struct {
	minProfitPct decimal.Decimal
}

// NewSelector creates a selector with an inclusive profit threshold in percent.
func NewSelector(minProfitPct decimal.Decimal) *Selector {
	return &Selector{minProfitPct: minProfitPct}
}

// Threshold returns the configured minimum profit in percent.
func (s *Selector) Threshold() decimal.Decimal {
	return s.minProfitPct
}

// Qualifies reports whether an evaluated candidate meets the threshold.
func (s *Selector) Qualifies(c model.Candidate) bool {
	return c.Evaluated && c.ProfitPct.GreaterThanOrEqual(s.minProfitPct)
}

// Select returns the qualifying candidate with the highest profit. Ties go to
// the lowest path id, then forward before reverse, so the result does not
// depend on candidate order.
func (s *Selector) Select(candidates []model.Candidate) (model.Candidate, bool) {
	var (
		best  model.Candidate
		found bool
	)
	for _, c := range candidates {
		if !s.Qualifies(c) {
			continue
		}
		if !found || better(c, best) {
			best, found = c, true
		}
	}
	return best, found
}

// Best returns the evaluated candidate with the highest profit regardless of
// the threshold.
func Best(candidates []model.Candidate) (model.Candidate, bool) {
	var (
		best  model.Candidate
		found bool
	)
	for _, c := range candidates {
		if !c.Evaluated {
			continue
		}
		if !found || better(c, best) {
			best, found = c, true
		}
	}
	return best, found
}

func better(a, b model.Candidate) bool {
	if cmp := a.ProfitPct.Cmp(b.ProfitPct); cmp != 0 {
		return cmp > 0
	}
	if a.PathID() != b.PathID() {
		return a.PathID() < b.PathID()
	}
	return a.Direction < b.Direction
}
