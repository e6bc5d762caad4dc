package dex

import (
	"fmt"

	"github.com/shopspring/decimal"

	"poolarb/internal/model"
)

// priceDigits is the number of decimal places kept when a decoder divides.
const priceDigits = 24

// DecodeError reports pool account data that cannot be turned into a quote.
type DecodeError struct {
	PoolID string
	Kind   model.DexKind
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s pool %s: %s", e.Kind, e.PoolID, e.Reason)
}

// Input is everything a decoder needs to price one pool.
type Input struct {
	Pool     *model.Pool
	TokenA   model.Token
	TokenB   model.Token
	Accounts []model.AccountData
}

type reading struct {
	price     decimal.Decimal
	liquidity decimal.Decimal
}

type decodeFunc func(in Input) (reading, error)

var decoders = map[model.DexKind]decodeFunc{
	model.KindConstantProduct: decodeConstantProduct,
	model.KindWhirlpool:       concentratedDecoder(whirlpoolLayout),
	model.KindRaydiumCLMM:     concentratedDecoder(raydiumLayout),
	model.KindMeteoraDLMM:     decodeBinned,
}

// Supported reports whether a decoder exists for the kind.
func Supported(kind model.DexKind) bool {
	_, ok := decoders[kind]
	return ok
}

// Decode converts the raw accounts of a pool into a quote of token A priced in
// token B. The fee is the pool's configured fee. Every failure is a *DecodeError.
func Decode(pool *model.Pool, tokenA, tokenB model.Token, accounts []model.AccountData) (model.Quote, error) {
	if pool == nil {
		return model.Quote{}, &DecodeError{Reason: "nil pool"}
	}
	fail := func(format string, args ...interface{}) (model.Quote, error) {
		return model.Quote{}, &DecodeError{PoolID: pool.ID, Kind: pool.Kind, Reason: fmt.Sprintf(format, args...)}
	}

	decode, ok := decoders[pool.Kind]
	if !ok {
		return fail("no decoder for kind")
	}
	if len(accounts) != pool.Kind.AccountCount() {
		return fail("expected %d accounts, got %d", pool.Kind.AccountCount(), len(accounts))
	}

	r, err := decode(Input{Pool: pool, TokenA: tokenA, TokenB: tokenB, Accounts: accounts})
	if err != nil {
		return fail("%v", err)
	}
	if !r.price.IsPositive() {
		return fail("non-positive price %s", r.price)
	}

	return model.Quote{
		PoolID:    pool.ID,
		Price:     r.price,
		Fee:       pool.Fee,
		Liquidity: r.liquidity,
		Valid:     true,
	}, nil
}

