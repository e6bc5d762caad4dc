package arb

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"poolarb/internal/config"
	"poolarb/internal/model"
	"poolarb/internal/paths"
	"poolarb/internal/pricecache"
	"poolarb/internal/registry"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	key := func() string { return solana.NewWallet().PublicKey().String() }
	reg, err := registry.New(
		[]config.TokenConfig{
			{Symbol: "SOL", Mint: solMint, Decimals: 9},
			{Symbol: "USDC", Mint: usdcMint, Decimals: 6},
		},
		[]config.PoolConfig{
			{ID: "amm-a", Kind: "constant_product", Fee: "0.0005", TokenA: "SOL", TokenB: "USDC", Accounts: []string{key(), key()}},
			{ID: "amm-b", Kind: "constant_product", Fee: "0.0001", TokenA: "SOL", TokenB: "USDC", Accounts: []string{key(), key()}},
			{ID: "amm-c", Kind: "constant_product", Fee: "0.003", TokenA: "SOL", TokenB: "USDC", Accounts: []string{key(), key()}},
		},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func vault(mint string, amount uint64) model.AccountData {
	data := make([]byte, 165)
	pk := solana.MustPublicKeyFromBase58(mint)
	copy(data, pk[:])
	binary.LittleEndian.PutUint64(data[64:], amount)
	return model.AccountData{Owner: solana.TokenProgramID, Data: data}
}

func seedPool(t *testing.T, cache *pricecache.Cache, id string, sol, usdc uint64) {
	t.Helper()
	cache.Apply(pricecache.Update{PoolID: id, Index: 0, Account: vault(solMint, sol), Slot: 1})
	cache.Apply(pricecache.Update{PoolID: id, Index: 1, Account: vault(usdcMint, usdc), Slot: 1})
}

type capture struct {
	signals []model.Signal
	cycles  chan model.CycleRecord
}

func newCapture() *capture {
	return &capture{cycles: make(chan model.CycleRecord, 16)}
}

func (c *capture) Publish(_ context.Context, s model.Signal) error {
	c.signals = append(c.signals, s)
	return nil
}

func (c *capture) LogCycle(_ context.Context, r model.CycleRecord) error {
	c.cycles <- r
	return nil
}

func newTestScanner(t *testing.T, out *capture) (*Scanner, *pricecache.Cache) {
	t.Helper()
	reg := testRegistry(t)
	cache := pricecache.New(reg, pricecache.Options{MaxAge: time.Minute, Logger: zap.NewNop()})

	table := paths.RouteTable{Base: "USDC", MaxHops: 1, Routes: map[int][][]string{1: {{"SOL"}}}}
	generated, err := paths.NewGenerator(paths.NewGraph(reg.Pools()), table, nil, zap.NewNop()).Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	scanner := NewScanner(ScannerConfig{
		Base:         "USDC",
		TradeSize:    d("100"),
		MinProfitPct: d("0.001"),
		Interval:     time.Hour,
	}, cache, generated, out, out, nil, zap.NewNop())
	return scanner, cache
}

func TestCycleIsolatesDecodeFailure(t *testing.T) {
	out := newCapture()
	scanner, cache := newTestScanner(t, out)

	seedPool(t, cache, "amm-a", 1_000_000_000_000, 124_500_000_000)
	seedPool(t, cache, "amm-b", 1_000_000_000_000, 124_800_000_000)
	short := vault(solMint, 1)
	short.Data = short.Data[:40]
	cache.Apply(pricecache.Update{PoolID: "amm-c", Index: 0, Account: short, Slot: 1})
	cache.Apply(pricecache.Update{PoolID: "amm-c", Index: 1, Account: vault(usdcMint, 1), Slot: 1})

	res := scanner.Cycle(context.Background(), cache.Snapshot())

	if res.Record.Evaluated != 2 || res.Record.Skipped != 4 {
		t.Fatalf("evaluated=%d skipped=%d", res.Record.Evaluated, res.Record.Skipped)
	}
	for _, c := range res.Candidates {
		touchesC := strings.Contains(c.Path.Key, "amm-c")
		if touchesC && (c.Evaluated || !strings.Contains(c.Reason, "too short")) {
			t.Fatalf("path %s should be skipped with decode reason, got %q", c.Path.Key, c.Reason)
		}
		if !touchesC && !c.Evaluated {
			t.Fatalf("path %s should be evaluated, got %q", c.Path.Key, c.Reason)
		}
	}

	if res.Opportunity == nil {
		t.Fatalf("expected opportunity")
	}
	if res.Opportunity.Direction != model.Forward || res.Opportunity.Route != "USDC -[amm-a]-> SOL -[amm-b]-> USDC" {
		t.Fatalf("unexpected opportunity: %+v", res.Opportunity)
	}
	if got := res.Opportunity.ProfitPct.Round(4); !got.Equal(d("0.1808")) {
		t.Fatalf("profit = %s", res.Opportunity.ProfitPct)
	}

	if len(out.signals) != 1 {
		t.Fatalf("signals = %d", len(out.signals))
	}
	sig := out.signals[0]
	if sig.Base != "USDC" || !sig.TradeSize.Equal(d("100")) || sig.TimestampMs == 0 || sig.ID == "" {
		t.Fatalf("unexpected signal: %+v", sig)
	}

	rec := <-out.cycles
	if rec.Serial != 1 || !rec.TradePossible || rec.FailureReason != "" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.SpreadAbs.Equal(d("0.3")) || len(rec.Prices) != 2 {
		t.Fatalf("spread = %s prices = %v", rec.SpreadAbs, rec.Prices)
	}
}

func TestCycleWithoutUsableQuotes(t *testing.T) {
	out := newCapture()
	scanner, cache := newTestScanner(t, out)

	res := scanner.Cycle(context.Background(), cache.Snapshot())
	if res.Opportunity != nil || len(out.signals) != 0 {
		t.Fatalf("no opportunity expected")
	}
	rec := <-out.cycles
	if rec.TradePossible || !strings.HasPrefix(rec.FailureReason, "no evaluable paths") {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCycleBelowThreshold(t *testing.T) {
	out := newCapture()
	scanner, cache := newTestScanner(t, out)

	seedPool(t, cache, "amm-a", 1_000_000_000_000, 124_500_000_000)
	seedPool(t, cache, "amm-b", 1_000_000_000_000, 124_500_000_000)
	seedPool(t, cache, "amm-c", 1_000_000_000_000, 124_500_000_000)

	res := scanner.Cycle(context.Background(), cache.Snapshot())
	if res.Opportunity != nil {
		t.Fatalf("equal prices cannot be profitable")
	}
	rec := <-out.cycles
	if rec.TradePossible || !strings.Contains(rec.FailureReason, "below threshold") || !rec.NetProfitPct.IsNegative() {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestRunScansOnNotify(t *testing.T) {
	out := newCapture()
	scanner, cache := newTestScanner(t, out)
	seedPool(t, cache, "amm-a", 1_000_000_000_000, 124_500_000_000)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scanner.Run(ctx) }()

	scanner.Notify()
	scanner.Notify()
	select {
	case rec := <-out.cycles:
		if rec.Serial != 1 {
			t.Fatalf("serial = %d", rec.Serial)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no cycle after notify")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestSpreadOnlyComparesSinglePairPrices(t *testing.T) {
	now := time.Now()
	a, b := solUSDCPool("a"), solUSDCPool("b")
	solUSDT := &model.Pool{ID: "sol-usdt", TokenA: "SOL", TokenB: "USDT"}
	usdtUSDC := &model.Pool{ID: "usdt-usdc", TokenA: "USDT", TokenB: "USDC"}
	snap := pricecache.NewSnapshot(now, time.Minute, []model.Quote{
		quote("a", "100", "0", now),
		quote("b", "102", "0", now),
		quote("sol-usdt", "102", "0", now),
		quote("usdt-usdc", "1", "0", now),
	})
	ev := NewEvaluator()

	abs, pct := spread(ev.Evaluate(pairPath(1, a, b), model.Forward, snap))
	if !abs.Equal(d("2")) || !pct.Equal(d("2")) {
		t.Fatalf("1-hop spread abs=%s pct=%s", abs, pct)
	}

	triangle := &model.Path{ID: 2, Base: "USDC", Legs: []model.Leg{
		{Pool: a, In: "USDC", Out: "SOL"},
		{Pool: solUSDT, In: "SOL", Out: "USDT"},
		{Pool: usdtUSDC, In: "USDT", Out: "USDC"},
	}}
	abs, pct = spread(ev.Evaluate(triangle, model.Forward, snap))
	if !abs.IsZero() {
		t.Fatalf("2-hop spread abs should be zero, got %s", abs)
	}
	if !pct.Equal(d("2")) {
		t.Fatalf("2-hop spread pct = %s", pct)
	}
}
