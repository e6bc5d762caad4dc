package paths

import (
	"fmt"
	"sort"
	"strings"

	"poolarb/internal/config"
)

// Wildcard matches any token except the base.
const Wildcard = "*"

// RouteTable declares which intermediate token sequences are allowed per depth.
type RouteTable struct {
	Base    string
	MaxHops int
	Routes  map[int][][]string
}

// TableFromConfig builds the route table from loaded configuration.
func TableFromConfig(cfg config.Config) RouteTable {
	return RouteTable{Base: cfg.Base, MaxHops: cfg.MaxHops, Routes: cfg.Routes}
}

// Depths returns the usable depths in ascending order.
func (t RouteTable) Depths() []int {
	depths := make([]int, 0, len(t.Routes))
	for depth := range t.Routes {
		if depth >= 1 && depth <= t.MaxHops {
			depths = append(depths, depth)
		}
	}
	sort.Ints(depths)
	return depths
}

// Validate checks the table against the known token set.
func (t RouteTable) Validate(known func(string) bool) error {
	if t.Base == "" || !known(t.Base) {
		return &config.ConfigError{Field: "base", Reason: fmt.Sprintf("unknown base token %q", t.Base)}
	}
	if t.MaxHops < 1 || t.MaxHops > config.MaxSupportedHops {
		return &config.ConfigError{Field: "max-hops", Reason: fmt.Sprintf("must be between 1 and %d", config.MaxSupportedHops)}
	}
	for depth, seqs := range t.Routes {
		for _, seq := range seqs {
			if len(seq) != depth {
				return &config.ConfigError{Field: "routes", Reason: fmt.Sprintf("depth %d entry %v has %d tokens", depth, seq, len(seq))}
			}
			for _, token := range seq {
				if token == Wildcard {
					continue
				}
				if token == t.Base {
					return &config.ConfigError{Field: "routes", Reason: fmt.Sprintf("entry %v visits the base token", seq)}
				}
				if !known(token) {
					return &config.ConfigError{Field: "routes", Reason: fmt.Sprintf("entry %v references unknown token %q", seq, token)}
				}
			}
		}
	}
	return nil
}

// expand resolves wildcards against candidates, dropping sequences that
// repeat a token. Output order follows candidate order.
func (t RouteTable) expand(seq []string, candidates []string) [][]string {
	out := [][]string{{}}
	for _, token := range seq {
		options := []string{token}
		if token == Wildcard {
			options = candidates
		}
		next := make([][]string, 0, len(out)*len(options))
		for _, prefix := range out {
			for _, option := range options {
				if option == t.Base || contains(prefix, option) {
					continue
				}
				grown := make([]string, len(prefix), len(prefix)+1)
				copy(grown, prefix)
				next = append(next, append(grown, option))
			}
		}
		out = next
	}
	return out
}

func contains(items []string, item string) bool {
	for _, v := range items {
		if v == item {
			return true
		}
	}
	return false
}

func seqKey(seq []string) string {
	return strings.Join(seq, ",")
}
