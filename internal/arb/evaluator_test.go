package arb

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"poolarb/internal/model"
	"poolarb/internal/pricecache"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func solUSDCPool(id string) *model.Pool {
	return &model.Pool{ID: id, Kind: model.KindWhirlpool, TokenA: "SOL", TokenB: "USDC"}
}

// pairPath buys SOL on x and sells it on y.
func pairPath(id int, x, y *model.Pool) *model.Path {
	return &model.Path{
		ID:   id,
		Key:  x.ID + ">" + y.ID,
		Base: "USDC",
		Legs: []model.Leg{
			{Pool: x, In: "USDC", Out: "SOL"},
			{Pool: y, In: "SOL", Out: "USDC"},
		},
	}
}

func quote(id, price, fee string, at time.Time) model.Quote {
	return model.Quote{PoolID: id, Price: d(price), Fee: d(fee), UpdatedAt: at, Valid: true}
}

func TestEvaluateDirectionSelection(t *testing.T) {
	now := time.Now()
	a, b := solUSDCPool("a"), solUSDCPool("b")
	snap := pricecache.NewSnapshot(now, time.Minute, []model.Quote{
		quote("a", "124.50", "0.0005", now),
		quote("b", "124.80", "0.0001", now),
	})
	path := pairPath(1, a, b)
	ev := NewEvaluator()

	fwd := ev.Evaluate(path, model.Forward, snap)
	rev := ev.Evaluate(path, model.Reverse, snap)
	if !fwd.Evaluated || !rev.Evaluated {
		t.Fatalf("expected both directions evaluated: %q %q", fwd.Reason, rev.Reason)
	}
	if got := fwd.ProfitPct.Round(4); !got.Equal(d("0.1808")) {
		t.Fatalf("forward profit = %s", fwd.ProfitPct)
	}
	if got := rev.ProfitPct.Round(3); !got.Equal(d("-0.300")) {
		t.Fatalf("reverse profit = %s", rev.ProfitPct)
	}
	if fwd.Route() != "USDC -[a]-> SOL -[b]-> USDC" || rev.Route() != "USDC -[b]-> SOL -[a]-> USDC" {
		t.Fatalf("routes: %s | %s", fwd.Route(), rev.Route())
	}

	best, ok := NewSelector(d("0.001")).Select([]model.Candidate{rev, fwd})
	if !ok || best.Direction != model.Forward || best.PathID() != 1 {
		t.Fatalf("unexpected selection: ok=%v %+v", ok, best)
	}
}

func TestEvaluateDirectionsAreAsymmetric(t *testing.T) {
	now := time.Now()
	a, b := solUSDCPool("a"), solUSDCPool("b")
	path := pairPath(1, a, b)
	ev := NewEvaluator()

	asym := pricecache.NewSnapshot(now, 0, []model.Quote{
		quote("a", "100", "0.003", now),
		quote("b", "101", "0.003", now),
	})
	if ev.Evaluate(path, model.Forward, asym).ProfitPct.Equal(ev.Evaluate(path, model.Reverse, asym).ProfitPct) {
		t.Fatalf("different prices must give different profits")
	}

	sym := pricecache.NewSnapshot(now, 0, []model.Quote{
		quote("a", "100", "0.003", now),
		quote("b", "100", "0.003", now),
	})
	fwd := ev.Evaluate(path, model.Forward, sym)
	rev := ev.Evaluate(path, model.Reverse, sym)
	if !fwd.ProfitPct.Equal(rev.ProfitPct) {
		t.Fatalf("equal prices and fees should be symmetric: %s vs %s", fwd.ProfitPct, rev.ProfitPct)
	}
	if !fwd.ProfitPct.IsNegative() {
		t.Fatalf("round trip through fees must lose: %s", fwd.ProfitPct)
	}
}

func TestEvaluateFeeMonotonicity(t *testing.T) {
	now := time.Now()
	a, b := solUSDCPool("a"), solUSDCPool("b")
	path := pairPath(1, a, b)
	ev := NewEvaluator()

	fees := []string{"0", "0.0001", "0.0005", "0.003", "0.01"}
	for _, dir := range model.Directions {
		var prev decimal.Decimal
		for i, fee := range fees {
			snap := pricecache.NewSnapshot(now, 0, []model.Quote{
				quote("a", "124.50", "0.0005", now),
				quote("b", "124.80", fee, now),
			})
			profit := ev.Evaluate(path, dir, snap).ProfitPct
			if i > 0 && !profit.LessThan(prev) {
				t.Fatalf("%s: fee %s profit %s not below %s", dir, fee, profit, prev)
			}
			prev = profit
		}
	}
}

func TestEvaluateSkipsUnusableQuotes(t *testing.T) {
	now := time.Now()
	a, b, c := solUSDCPool("a"), solUSDCPool("b"), solUSDCPool("c")
	stale := quote("b", "124.80", "0.0001", now.Add(-time.Hour))
	invalid := model.Quote{PoolID: "c", Valid: false, Err: "pool state too short"}
	snap := pricecache.NewSnapshot(now, time.Minute, []model.Quote{quote("a", "124.50", "0.0005", now), stale, invalid})

	ev := NewEvaluator()
	if got := ev.Evaluate(pairPath(1, a, b), model.Forward, snap); got.Evaluated || got.Reason != "pool b: stale" {
		t.Fatalf("expected stale skip, got %+v", got)
	}
	if got := ev.Evaluate(pairPath(2, a, c), model.Reverse, snap); got.Evaluated || got.Reason != "pool c: invalid: pool state too short" {
		t.Fatalf("expected invalid skip, got %+v", got)
	}
	missing := solUSDCPool("z")
	if got := ev.Evaluate(pairPath(3, a, missing), model.Forward, snap); got.Evaluated || got.Prices != nil {
		t.Fatalf("partial evaluation leaked: %+v", got)
	}
}

func TestEvaluateMultiHopSides(t *testing.T) {
	now := time.Now()
	solUSDC := solUSDCPool("sol-usdc")
	solUSDT := &model.Pool{ID: "sol-usdt", TokenA: "SOL", TokenB: "USDT"}
	usdtUSDC := &model.Pool{ID: "usdt-usdc", TokenA: "USDT", TokenB: "USDC"}
	path := &model.Path{ID: 1, Base: "USDC", Legs: []model.Leg{
		{Pool: solUSDC, In: "USDC", Out: "SOL"},
		{Pool: solUSDT, In: "SOL", Out: "USDT"},
		{Pool: usdtUSDC, In: "USDT", Out: "USDC"},
	}}
	if err := path.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	snap := pricecache.NewSnapshot(now, 0, []model.Quote{
		quote("sol-usdc", "100", "0", now),
		quote("sol-usdt", "102", "0", now),
		quote("usdt-usdc", "1", "0", now),
	})

	ev := NewEvaluator()
	fwd := ev.Evaluate(path, model.Forward, snap)
	if !fwd.ProfitPct.Equal(d("2")) || !fwd.GrossPct.Equal(d("2")) {
		t.Fatalf("forward profit = %s gross = %s", fwd.ProfitPct, fwd.GrossPct)
	}
	rev := ev.Evaluate(path, model.Reverse, snap)
	if got := rev.Output.Round(12); !got.Equal(d("0.980392156863")) {
		t.Fatalf("reverse output = %s", rev.Output)
	}
}

func TestEvaluateUsesFrozenSnapshot(t *testing.T) {
	now := time.Now()
	a, b := solUSDCPool("a"), solUSDCPool("b")
	path := pairPath(1, a, b)

	cache := pricecache.New(testRegistry(t), pricecache.Options{MaxAge: time.Minute})
	cache.Put(quote("amm-a", "124.50", "0.0005", now))
	cache.Put(quote("amm-b", "124.80", "0.0001", now))
	a.ID, b.ID = "amm-a", "amm-b"

	snap := cache.Snapshot()
	ev := NewEvaluator()
	want := ev.Evaluate(path, model.Forward, snap).ProfitPct

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r := rand.New(rand.NewSource(1))
		for i := 0; i < 500; i++ {
			cache.Put(quote("amm-b", decimal.NewFromInt(int64(100+r.Intn(50))).String(), "0.0001", now))
		}
	}()
	for i := 0; i < 200; i++ {
		if got := ev.Evaluate(path, model.Forward, snap).ProfitPct; !got.Equal(want) {
			t.Fatalf("profit moved under frozen snapshot: %s vs %s", got, want)
		}
	}
	wg.Wait()
}
