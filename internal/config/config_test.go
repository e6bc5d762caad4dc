package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const sampleConfig = `
rpc: https://api.mainnet-beta.solana.com
ws: wss://api.mainnet-beta.solana.com
mode: subscribe
commitment: processed
pool-timeout: 1500ms
base: USDC
max-hops: 2
tokens:
  - symbol: USDC
    mint: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    decimals: 6
  - symbol: SOL
    mint: So11111111111111111111111111111111111111112
    decimals: 9
pools:
  - id: orca-sol-usdc
    kind: whirlpool
    fee: 0.0004
    token_a: SOL
    token_b: USDC
    accounts: [Czfq3xZZDmsdGdUyrNLtRhGc47cXcZtLG4crryfu44zE]
routes:
  1:
    - [SOL]
  2:
    - [SOL, USDT]
    - "*, USDT"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Mode != ModeSubscribe || cfg.Commitment != "processed" || cfg.PoolTimeout != 1500*time.Millisecond {
		t.Fatalf("unexpected network settings: %+v", cfg)
	}
	if cfg.PollInterval != 2*time.Second || cfg.MaxRetries != 3 {
		t.Fatalf("defaults not applied: poll=%s retries=%d", cfg.PollInterval, cfg.MaxRetries)
	}
	if !cfg.MinProfitPct.Equal(decimal.RequireFromString("0.001")) {
		t.Fatalf("min profit = %s", cfg.MinProfitPct)
	}
	if len(cfg.Tokens) != 2 || cfg.Tokens[1].Decimals != 9 {
		t.Fatalf("tokens = %+v", cfg.Tokens)
	}
	if len(cfg.Pools) != 1 || cfg.Pools[0].TokenA != "SOL" || cfg.Pools[0].Fee != "0.0004" {
		t.Fatalf("pools = %+v", cfg.Pools)
	}
	if len(cfg.Routes[1]) != 1 || cfg.Routes[1][0][0] != "SOL" {
		t.Fatalf("depth 1 routes = %v", cfg.Routes[1])
	}
	if len(cfg.Routes[2]) != 2 || cfg.Routes[2][1][0] != "*" || cfg.Routes[2][1][1] != "USDT" {
		t.Fatalf("depth 2 routes = %v", cfg.Routes[2])
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("POOLARB_MIN_PROFIT_PCT", "0.25")
	t.Setenv("POOLARB_MAX_QUOTE_AGE", "5s")

	cfg, err := Load(writeConfig(t, sampleConfig), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.MinProfitPct.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("min profit = %s", cfg.MinProfitPct)
	}
	if cfg.MaxQuoteAge != 5*time.Second {
		t.Fatalf("max quote age = %s", cfg.MaxQuoteAge)
	}
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	t.Setenv("POOLARB_MIN_PROFIT_PCT", "lots")
	_, err := Load(writeConfig(t, sampleConfig), nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "min-profit-pct" {
		t.Fatalf("expected min-profit-pct ConfigError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base, err := Load(writeConfig(t, sampleConfig), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cases := map[string]func(c *Config){
		"rpc":           func(c *Config) { c.RPCURL = "" },
		"mode":          func(c *Config) { c.Mode = "stream" },
		"ws":            func(c *Config) { c.WSURL = "" },
		"pool-timeout":  func(c *Config) { c.PoolTimeout = 0 },
		"trade-size":    func(c *Config) { c.TradeSize = decimal.Zero },
		"max-hops":      func(c *Config) { c.MaxHops = 5 },
		"base":          func(c *Config) { c.Base = " " },
		"routes":        func(c *Config) { c.Routes = map[int][][]string{2: {{"SOL"}}} },
		"cooldown":      func(c *Config) { c.Cooldown = -time.Second },
		"max-quote-age": func(c *Config) { c.MaxQuoteAge = 0 },
	}
	for field, mutate := range cases {
		cfg := base
		mutate(&cfg)
		err := cfg.Validate()
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != field {
			t.Fatalf("%s: expected ConfigError on %s, got %v", field, field, err)
		}
	}
}
