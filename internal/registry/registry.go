package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"poolarb/internal/config"
	"poolarb/internal/model"
)

// ConfigError is returned when the token or pool catalog is invalid.
type ConfigError = config.ConfigError

// AccountRef locates an account within a pool's account list.
type AccountRef struct {
	PoolID string
	Index  int
}

// Registry is the immutable catalog of tokens and pools.
type Registry struct {
	tokens    map[string]model.Token
	pools     map[string]*model.Pool
	ordered   []*model.Pool
	byAccount map[solana.PublicKey][]AccountRef
}

// New validates the configured entries and builds the registry.
func New(tokens []config.TokenConfig, pools []config.PoolConfig) (*Registry, error) {
	r := &Registry{
		tokens:    make(map[string]model.Token, len(tokens)),
		pools:     make(map[string]*model.Pool, len(pools)),
		byAccount: make(map[solana.PublicKey][]AccountRef),
	}

	for i, tc := range tokens {
		token, err := buildToken(tc)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("tokens[%d]", i), Reason: err.Error()}
		}
		if _, exists := r.tokens[token.Symbol]; exists {
			return nil, &ConfigError{Field: fmt.Sprintf("tokens[%d]", i), Reason: fmt.Sprintf("duplicate symbol %s", token.Symbol)}
		}
		r.tokens[token.Symbol] = token
	}

	if len(pools) == 0 {
		return nil, &ConfigError{Field: "pools", Reason: "at least one pool is required"}
	}
	for i, pc := range pools {
		pool, err := r.buildPool(pc)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("pools[%d]", i), Reason: err.Error()}
		}
		if _, exists := r.pools[pool.ID]; exists {
			return nil, &ConfigError{Field: fmt.Sprintf("pools[%d]", i), Reason: fmt.Sprintf("duplicate pool id %s", pool.ID)}
		}
		r.pools[pool.ID] = pool
		r.ordered = append(r.ordered, pool)
		for idx, account := range pool.Accounts {
			r.byAccount[account] = append(r.byAccount[account], AccountRef{PoolID: pool.ID, Index: idx})
		}
	}
	sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i].ID < r.ordered[j].ID })

	return r, nil
}

func buildToken(tc config.TokenConfig) (model.Token, error) {
	symbol := strings.TrimSpace(tc.Symbol)
	if symbol == "" {
		return model.Token{}, fmt.Errorf("symbol is required")
	}
	if symbol == "*" {
		return model.Token{}, fmt.Errorf("symbol %q is reserved", symbol)
	}
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(tc.Mint))
	if err != nil {
		return model.Token{}, fmt.Errorf("token %s: invalid mint %q", symbol, tc.Mint)
	}
	return model.Token{Symbol: symbol, Mint: mint, Decimals: tc.Decimals}, nil
}

func (r *Registry) buildPool(pc config.PoolConfig) (*model.Pool, error) {
	id := strings.TrimSpace(pc.ID)
	if id == "" {
		return nil, fmt.Errorf("pool id is required")
	}
	kind, err := model.ParseDexKind(pc.Kind)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", id, err)
	}

	fee, err := parseFee(pc.Fee)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", id, err)
	}

	tokenA := strings.TrimSpace(pc.TokenA)
	tokenB := strings.TrimSpace(pc.TokenB)
	if _, ok := r.tokens[tokenA]; !ok {
		return nil, fmt.Errorf("pool %s: unknown token %q", id, tokenA)
	}
	if _, ok := r.tokens[tokenB]; !ok {
		return nil, fmt.Errorf("pool %s: unknown token %q", id, tokenB)
	}
	if tokenA == tokenB {
		return nil, fmt.Errorf("pool %s: token_a and token_b are both %s", id, tokenA)
	}

	accounts, err := ParseAccounts(pc.Accounts)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", id, err)
	}
	if len(accounts) != kind.AccountCount() {
		return nil, fmt.Errorf("pool %s: %s needs %d accounts, got %d", id, kind, kind.AccountCount(), len(accounts))
	}

	return &model.Pool{
		ID:       id,
		Kind:     kind,
		Fee:      fee,
		TokenA:   tokenA,
		TokenB:   tokenB,
		Accounts: accounts,
	}, nil
}

func parseFee(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid fee %q", input)
	}
	if fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Decimal{}, fmt.Errorf("fee %s outside [0, 1)", fee)
	}
	return fee, nil
}

// Token returns a token by symbol.
func (r *Registry) Token(symbol string) (model.Token, bool) {
	token, ok := r.tokens[symbol]
	return token, ok
}

// Pool returns a pool by id.
func (r *Registry) Pool(id string) (*model.Pool, bool) {
	pool, ok := r.pools[id]
	return pool, ok
}

// Pools returns all pools ordered by id. The slice must not be modified.
func (r *Registry) Pools() []*model.Pool {
	return r.ordered
}

// Pair returns the two tokens of a pool.
func (r *Registry) Pair(pool *model.Pool) (model.Token, model.Token) {
	return r.tokens[pool.TokenA], r.tokens[pool.TokenB]
}

// Lookup reports which pools reference an account.
func (r *Registry) Lookup(account solana.PublicKey) []AccountRef {
	return r.byAccount[account]
}

// Accounts returns every distinct account in pool order.
func (r *Registry) Accounts() []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{}, len(r.byAccount))
	out := make([]solana.PublicKey, 0, len(r.byAccount))
	for _, pool := range r.ordered {
		for _, account := range pool.Accounts {
			if _, ok := seen[account]; ok {
				continue
			}
			seen[account] = struct{}{}
			out = append(out, account)
		}
	}
	return out
}
