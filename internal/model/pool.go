package model

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// DexKind identifies the on-chain layout of a pool's price-bearing accounts.
type DexKind string

const (
	KindConstantProduct DexKind = "constant_product"
	KindWhirlpool       DexKind = "whirlpool"
	KindRaydiumCLMM     DexKind = "raydium_clmm"
	KindMeteoraDLMM     DexKind = "meteora_dlmm"
)

// Family groups kinds that share a pricing model.
type Family string

const (
	FamilyConstantProduct Family = "constant-product"
	FamilyConcentrated    Family = "concentrated-liquidity"
	FamilyBinned          Family = "binned-liquidity"
)

// ParseDexKind normalizes a configured kind name.
func ParseDexKind(input string) (DexKind, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "constant_product", "cpmm", "amm":
		return KindConstantProduct, nil
	case "whirlpool", "orca_whirlpool":
		return KindWhirlpool, nil
	case "raydium_clmm", "clmm":
		return KindRaydiumCLMM, nil
	case "meteora_dlmm", "dlmm":
		return KindMeteoraDLMM, nil
	default:
		return "", fmt.Errorf("unsupported dex kind: %q", input)
	}
}

// Family returns the pricing family of the kind.
func (k DexKind) Family() Family {
	switch k {
	case KindWhirlpool, KindRaydiumCLMM:
		return FamilyConcentrated
	case KindMeteoraDLMM:
		return FamilyBinned
	default:
		return FamilyConstantProduct
	}
}

// AccountCount is the number of accounts backing a pool of this kind.
// Constant-product pools are priced from their two vaults.
func (k DexKind) AccountCount() int {
	if k == KindConstantProduct {
		return 2
	}
	return 1
}

// Pool is an immutable pool configuration entry.
type Pool struct {
	ID       string             `json:"id"`
	Kind     DexKind            `json:"kind"`
	Fee      decimal.Decimal    `json:"fee"`
	TokenA   string             `json:"token_a"`
	TokenB   string             `json:"token_b"`
	Accounts []solana.PublicKey `json:"accounts"`
}

// Other returns the token on the opposite side of the pool.
func (p *Pool) Other(symbol string) (string, bool) {
	switch symbol {
	case p.TokenA:
		return p.TokenB, true
	case p.TokenB:
		return p.TokenA, true
	default:
		return "", false
	}
}

// AccountData is a raw account as returned by RPC or a subscription.
type AccountData struct {
	Owner solana.PublicKey
	Data  []byte
}
