package model

import "testing"

func twoPoolPath() *Path {
	orca := &Pool{ID: "orca", Kind: KindWhirlpool, TokenA: "SOL", TokenB: "USDC"}
	ray := &Pool{ID: "ray", Kind: KindRaydiumCLMM, TokenA: "SOL", TokenB: "USDC"}
	return &Path{
		ID:   1,
		Key:  "orca>ray",
		Base: "USDC",
		Legs: []Leg{
			{Pool: orca, In: "USDC", Out: "SOL"},
			{Pool: ray, In: "SOL", Out: "USDC"},
		},
	}
}

func TestPathDescribe(t *testing.T) {
	p := twoPoolPath()
	if got := p.Describe(Forward); got != "USDC -[orca]-> SOL -[ray]-> USDC" {
		t.Fatalf("unexpected forward route: %s", got)
	}
	if got := p.Describe(Reverse); got != "USDC -[ray]-> SOL -[orca]-> USDC" {
		t.Fatalf("unexpected reverse route: %s", got)
	}
	if p.Type() != "1-hop" {
		t.Fatalf("expected 1-hop, got %s", p.Type())
	}
}

func TestPathTraverseSides(t *testing.T) {
	p := twoPoolPath()
	fwd := p.Traverse(Forward)
	if fwd[0].Side() != SideBuy || fwd[1].Side() != SideSell {
		t.Fatalf("unexpected forward sides: %v %v", fwd[0].Side(), fwd[1].Side())
	}
	rev := p.Traverse(Reverse)
	if rev[0].Pool.ID != "ray" || rev[0].Side() != SideBuy || rev[1].Side() != SideSell {
		t.Fatalf("unexpected reverse legs: %+v", rev)
	}
}

func TestPathValidate(t *testing.T) {
	if err := twoPoolPath().Validate(); err != nil {
		t.Fatalf("expected valid path: %v", err)
	}

	broken := twoPoolPath()
	broken.Legs[1].In = "USDT"
	if err := broken.Validate(); err == nil {
		t.Fatalf("expected chaining error")
	}

	open := twoPoolPath()
	open.Legs = open.Legs[:1]
	if err := open.Validate(); err == nil {
		t.Fatalf("expected closure error")
	}

	if err := (&Path{ID: 9, Base: "USDC"}).Validate(); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
