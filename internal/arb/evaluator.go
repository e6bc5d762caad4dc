package arb

import (
	"fmt"

	"github.com/shopspring/decimal"

	"poolarb/internal/model"
	"poolarb/internal/pricecache"
)

// divisionDigits is the precision of every division in evaluation.
const divisionDigits = 18

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Evaluator computes fee-adjusted profit of paths against a snapshot.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvaluateAll evaluates every path forward then reverse, preserving path order.
func (e *Evaluator) EvaluateAll(paths []*model.Path, snap *pricecache.Snapshot) []model.Candidate {
	out := make([]model.Candidate, 0, len(paths)*len(model.Directions))
	for _, path := range paths {
		for _, dir := range model.Directions {
			out = append(out, e.Evaluate(path, dir, snap))
		}
	}
	return out
}

// Evaluate trades one unit of the base token along the path. Any unusable
// quote skips the whole direction.
func (e *Evaluator) Evaluate(path *model.Path, dir model.Direction, snap *pricecache.Snapshot) model.Candidate {
	c := model.Candidate{Path: path, Direction: dir}

	legs := path.Traverse(dir)
	prices := make([]model.PoolPrice, 0, len(legs))
	amount, gross := one, one
	for _, leg := range legs {
		q, ok, reason := snap.Usable(leg.Pool.ID)
		if !ok {
			c.Reason = fmt.Sprintf("pool %s: %s", leg.Pool.ID, reason)
			return c
		}
		if !q.Price.IsPositive() {
			c.Reason = fmt.Sprintf("pool %s: non-positive price", leg.Pool.ID)
			return c
		}
		prices = append(prices, model.PoolPrice{PoolID: leg.Pool.ID, Price: q.Price, Fee: q.Fee})
		amount = Swap(leg.Side(), q.Price, q.Fee, amount)
		gross = Swap(leg.Side(), q.Price, decimal.Zero, gross)
	}

	c.Prices = prices
	c.Output = amount
	c.ProfitPct = amount.Sub(one).Mul(hundred)
	c.GrossPct = gross.Sub(one).Mul(hundred)
	c.Evaluated = true
	return c
}

// Swap converts amount through a pool quoted as price of token A in token B.
// Selling A applies the fee to the proceeds; buying A applies it to the cost.
func Swap(side model.Side, price, fee, amount decimal.Decimal) decimal.Decimal {
	if side == model.SideSell {
		return amount.Mul(price).Mul(one.Sub(fee))
	}
	return amount.DivRound(price.Mul(one.Add(fee)), divisionDigits)
}
