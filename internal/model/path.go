package model

import (
	"fmt"
	"strings"
)

// Side is the trade performed on a leg relative to the pool's token A.
type Side int

const (
	// SideSell spends token A for token B.
	SideSell Side = iota
	// SideBuy spends token B for token A.
	SideBuy
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// Direction selects how a path's pool sequence is traversed.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// Directions lists every traversal direction evaluated per path.
var Directions = [...]Direction{Forward, Reverse}

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// Leg is one trade through a single pool.
type Leg struct {
	Pool *Pool
	In   string
	Out  string
}

// Side reports whether the leg sells or buys the pool's token A.
func (l Leg) Side() Side {
	if l.In == l.Pool.TokenA {
		return SideSell
	}
	return SideBuy
}

// Flip returns the same pool traded the opposite way.
func (l Leg) Flip() Leg {
	return Leg{Pool: l.Pool, In: l.Out, Out: l.In}
}

// Path is a closed route that starts and ends at Base.
type Path struct {
	ID   int    `json:"id"`
	Key  string `json:"key"`
	Base string `json:"base"`
	Legs []Leg  `json:"-"`
}

// Depth is the number of intermediate tokens visited.
func (p *Path) Depth() int {
	return len(p.Legs) - 1
}

// Type labels the path by depth, e.g. "2-hop".
func (p *Path) Type() string {
	return fmt.Sprintf("%d-hop", p.Depth())
}

// PoolIDs returns the pool ids in forward order.
func (p *Path) PoolIDs() []string {
	ids := make([]string, 0, len(p.Legs))
	for _, leg := range p.Legs {
		ids = append(ids, leg.Pool.ID)
	}
	return ids
}

// Traverse returns the legs in the order they trade for the direction.
func (p *Path) Traverse(d Direction) []Leg {
	if d == Forward {
		return p.Legs
	}
	out := make([]Leg, 0, len(p.Legs))
	for i := len(p.Legs) - 1; i >= 0; i-- {
		out = append(out, p.Legs[i].Flip())
	}
	return out
}

// Describe renders the route, e.g. "USDC -[orca]-> SOL -[raydium]-> USDC".
func (p *Path) Describe(d Direction) string {
	legs := p.Traverse(d)
	if len(legs) == 0 {
		return p.Base
	}
	var b strings.Builder
	b.WriteString(legs[0].In)
	for _, leg := range legs {
		b.WriteString(" -[")
		b.WriteString(leg.Pool.ID)
		b.WriteString("]-> ")
		b.WriteString(leg.Out)
	}
	return b.String()
}

// Validate checks the closure and chaining invariants.
func (p *Path) Validate() error {
	if len(p.Legs) == 0 {
		return fmt.Errorf("path %d: no legs", p.ID)
	}
	for i, leg := range p.Legs {
		if leg.Pool == nil {
			return fmt.Errorf("path %d: leg %d has no pool", p.ID, i)
		}
		other, ok := leg.Pool.Other(leg.In)
		if !ok || other != leg.Out {
			return fmt.Errorf("path %d: leg %d %s->%s not tradable on pool %s", p.ID, i, leg.In, leg.Out, leg.Pool.ID)
		}
		if i > 0 && p.Legs[i-1].Out != leg.In {
			return fmt.Errorf("path %d: leg %d input %s does not follow %s", p.ID, i, leg.In, p.Legs[i-1].Out)
		}
	}
	if p.Legs[0].In != p.Base {
		return fmt.Errorf("path %d: starts at %s, want %s", p.ID, p.Legs[0].In, p.Base)
	}
	if last := p.Legs[len(p.Legs)-1]; last.Out != p.Base {
		return fmt.Errorf("path %d: ends at %s, want %s", p.ID, last.Out, p.Base)
	}
	return nil
}
