package registry

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"poolarb/internal/config"
	"poolarb/internal/model"
)

func testTokens() []config.TokenConfig {
	return []config.TokenConfig{
		{Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6},
		{Symbol: "SOL", Mint: "So11111111111111111111111111111111111111112", Decimals: 9},
	}
}

func newAccount() string {
	return solana.NewWallet().PublicKey().String()
}

func TestNewSortsPools(t *testing.T) {
	pools := []config.PoolConfig{
		{ID: "ray-sol-usdc", Kind: "raydium_clmm", Fee: "0.0004", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount()}},
		{ID: "orca-sol-usdc", Kind: "whirlpool", Fee: "0.0005", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount()}},
		{ID: "amm-sol-usdc", Kind: "cpmm", Fee: "0.0025", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount(), newAccount()}},
	}

	reg, err := New(testTokens(), pools)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got := reg.Pools()
	if len(got) != 3 {
		t.Fatalf("pools len = %d", len(got))
	}
	if got[0].ID != "amm-sol-usdc" || got[1].ID != "orca-sol-usdc" || got[2].ID != "ray-sol-usdc" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[0].Kind != model.KindConstantProduct {
		t.Fatalf("alias not normalized: %s", got[0].Kind)
	}

	pool, ok := reg.Pool("orca-sol-usdc")
	if !ok || pool.Fee.String() != "0.0005" {
		t.Fatalf("pool lookup failed: %+v", pool)
	}
	a, b := reg.Pair(pool)
	if a.Decimals != 9 || b.Decimals != 6 {
		t.Fatalf("pair decimals %d/%d", a.Decimals, b.Decimals)
	}

	refs := reg.Lookup(got[0].Accounts[1])
	if len(refs) != 1 || refs[0].PoolID != "amm-sol-usdc" || refs[0].Index != 1 {
		t.Fatalf("lookup mismatch: %+v", refs)
	}
	if len(reg.Accounts()) != 4 {
		t.Fatalf("accounts len = %d", len(reg.Accounts()))
	}
}

func TestNewRejectsInvalidCatalog(t *testing.T) {
	cases := []struct {
		name  string
		pools []config.PoolConfig
	}{
		{"empty", nil},
		{"unknown token", []config.PoolConfig{{ID: "p", Kind: "whirlpool", TokenA: "SOL", TokenB: "BONK", Accounts: []string{newAccount()}}}},
		{"bad address", []config.PoolConfig{{ID: "p", Kind: "whirlpool", TokenA: "SOL", TokenB: "USDC", Accounts: []string{"0xdeadbeef"}}}},
		{"account count", []config.PoolConfig{{ID: "p", Kind: "constant_product", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount()}}}},
		{"fee too high", []config.PoolConfig{{ID: "p", Kind: "whirlpool", Fee: "1", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount()}}}},
		{"negative fee", []config.PoolConfig{{ID: "p", Kind: "whirlpool", Fee: "-0.1", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount()}}}},
		{"unknown kind", []config.PoolConfig{{ID: "p", Kind: "stable", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount()}}}},
		{"same token", []config.PoolConfig{{ID: "p", Kind: "whirlpool", TokenA: "SOL", TokenB: "SOL", Accounts: []string{newAccount()}}}},
		{"duplicate id", []config.PoolConfig{
			{ID: "p", Kind: "whirlpool", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount()}},
			{ID: "p", Kind: "whirlpool", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount()}},
		}},
	}

	for _, tc := range cases {
		_, err := New(testTokens(), tc.pools)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("%s: expected ConfigError, got %T", tc.name, err)
		}
	}
}

func TestNewRejectsDuplicateSymbol(t *testing.T) {
	tokens := append(testTokens(), config.TokenConfig{Symbol: "SOL", Mint: newAccount(), Decimals: 9})
	pools := []config.PoolConfig{{ID: "p", Kind: "whirlpool", TokenA: "SOL", TokenB: "USDC", Accounts: []string{newAccount()}}}
	if _, err := New(tokens, pools); err == nil {
		t.Fatalf("expected duplicate symbol error")
	}
}

func TestParseAccountsSkipsBlank(t *testing.T) {
	keys, err := ParseAccounts([]string{" ", newAccount(), ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("keys len = %d", len(keys))
	}
}
