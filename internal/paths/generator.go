package paths

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"poolarb/internal/model"
)

// Generator enumerates closed routes from the base token.
type Generator struct {
	graph  *Graph
	table  RouteTable
	known  func(string) bool
	logger *zap.Logger
}

// NewGenerator creates a generator. known reports registered token symbols.
func NewGenerator(graph *Graph, table RouteTable, known func(string) bool, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if known == nil {
		known = graph.Has
	}
	return &Generator{graph: graph, table: table, known: known, logger: logger}
}

// Generate returns every allowed path with ids 1..N in enumeration order:
// depth ascending, route table order, then pools by id. A pool sequence whose
// reverse was already emitted is skipped since evaluation covers both directions.
func (g *Generator) Generate() ([]*model.Path, error) {
	if err := g.table.Validate(g.known); err != nil {
		return nil, err
	}

	var (
		out      []*model.Path
		seenSeq  = make(map[string]struct{})
		seenPool = make(map[string]struct{})
	)
	for _, depth := range g.table.Depths() {
		before := len(out)
		for _, pattern := range g.table.Routes[depth] {
			for _, seq := range g.table.expand(pattern, g.graph.Tokens()) {
				key := seqKey(seq)
				if _, dup := seenSeq[key]; dup {
					continue
				}
				seenSeq[key] = struct{}{}

				tokens := make([]string, 0, len(seq)+2)
				tokens = append(tokens, g.table.Base)
				tokens = append(tokens, seq...)
				tokens = append(tokens, g.table.Base)

				var err error
				out, err = g.walk(tokens, out, seenPool)
				if err != nil {
					return nil, err
				}
			}
		}
		g.logger.Debug("paths generated", zap.Int("depth", depth), zap.Int("count", len(out)-before))
	}
	return out, nil
}

// walk appends every pool combination along tokens.
func (g *Generator) walk(tokens []string, out []*model.Path, seen map[string]struct{}) ([]*model.Path, error) {
	legs := make([]model.Leg, 0, len(tokens)-1)
	used := make(map[string]struct{}, len(tokens)-1)

	var visit func(i int) error
	visit = func(i int) error {
		if i == len(tokens)-1 {
			ids := make([]string, len(legs))
			for j, leg := range legs {
				ids[j] = leg.Pool.ID
			}
			key := strings.Join(ids, ">")
			if _, dup := seen[key]; dup {
				return nil
			}
			if _, dup := seen[reverseKey(ids)]; dup {
				return nil
			}
			seen[key] = struct{}{}

			path := &model.Path{
				ID:   len(out) + 1,
				Key:  key,
				Base: g.table.Base,
				Legs: append([]model.Leg(nil), legs...),
			}
			if err := path.Validate(); err != nil {
				return fmt.Errorf("generate path: %w", err)
			}
			out = append(out, path)
			return nil
		}

		for _, pool := range g.graph.Pools(tokens[i], tokens[i+1]) {
			if _, ok := used[pool.ID]; ok {
				continue
			}
			used[pool.ID] = struct{}{}
			legs = append(legs, model.Leg{Pool: pool, In: tokens[i], Out: tokens[i+1]})
			if err := visit(i + 1); err != nil {
				return err
			}
			legs = legs[:len(legs)-1]
			delete(used, pool.ID)
		}
		return nil
	}

	if err := visit(0); err != nil {
		return nil, err
	}
	return out, nil
}

func reverseKey(ids []string) string {
	rev := make([]string, len(ids))
	for i, id := range ids {
		rev[len(ids)-1-i] = id
	}
	return strings.Join(rev, ">")
}
