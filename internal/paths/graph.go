package paths

import (
	"sort"

	"poolarb/internal/model"
)

// Graph is the token graph: tokens are nodes and pools are labeled edges.
type Graph struct {
	adj    map[string]map[string][]*model.Pool
	tokens []string
}

// NewGraph builds the graph. Parallel edges keep the order of pools, which the
// registry returns sorted by id.
func NewGraph(pools []*model.Pool) *Graph {
	g := &Graph{adj: make(map[string]map[string][]*model.Pool)}
	for _, pool := range pools {
		g.addEdge(pool.TokenA, pool.TokenB, pool)
		g.addEdge(pool.TokenB, pool.TokenA, pool)
	}
	for token := range g.adj {
		g.tokens = append(g.tokens, token)
	}
	sort.Strings(g.tokens)
	for _, byPeer := range g.adj {
		for peer := range byPeer {
			edges := byPeer[peer]
			sort.SliceStable(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
		}
	}
	return g
}

func (g *Graph) addEdge(from, to string, pool *model.Pool) {
	byPeer, ok := g.adj[from]
	if !ok {
		byPeer = make(map[string][]*model.Pool)
		g.adj[from] = byPeer
	}
	byPeer[to] = append(byPeer[to], pool)
}

// Tokens returns every token with at least one pool, sorted.
func (g *Graph) Tokens() []string {
	return g.tokens
}

// Has reports whether the token has at least one pool.
func (g *Graph) Has(token string) bool {
	_, ok := g.adj[token]
	return ok
}

// Pools returns the pools trading from one token to another, sorted by id.
func (g *Graph) Pools(from, to string) []*model.Pool {
	return g.adj[from][to]
}

