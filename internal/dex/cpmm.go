package dex

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// SPL token account layout.
const (
	tokenAccountLen = 165
	tokenMintOff    = 0
	tokenAmountOff  = 64
)

func decodeConstantProduct(in Input) (reading, error) {
	reserveA, err := vaultAmount(in.Accounts[0].Owner, in.Accounts[0].Data, in.TokenA.Mint)
	if err != nil {
		return reading{}, fmt.Errorf("vault a: %w", err)
	}
	reserveB, err := vaultAmount(in.Accounts[1].Owner, in.Accounts[1].Data, in.TokenB.Mint)
	if err != nil {
		return reading{}, fmt.Errorf("vault b: %w", err)
	}
	if reserveA == 0 {
		return reading{}, fmt.Errorf("zero reserve for %s", in.TokenA.Symbol)
	}
	if reserveB == 0 {
		return reading{}, fmt.Errorf("zero reserve for %s", in.TokenB.Symbol)
	}

	a := decimal.NewFromBigInt(u64Big(reserveA), -int32(in.TokenA.Decimals))
	b := decimal.NewFromBigInt(u64Big(reserveB), -int32(in.TokenB.Decimals))

	return reading{
		price:     b.DivRound(a, priceDigits),
		liquidity: a,
	}, nil
}

func vaultAmount(owner solana.PublicKey, data []byte, mint solana.PublicKey) (uint64, error) {
	if !owner.Equals(solana.TokenProgramID) && !owner.Equals(solana.Token2022ProgramID) {
		return 0, fmt.Errorf("owner %s is not a token program", owner)
	}
	if len(data) < tokenAccountLen {
		return 0, fmt.Errorf("token account too short: %d bytes", len(data))
	}
	got := solana.PublicKeyFromBytes(data[tokenMintOff : tokenMintOff+32])
	if !got.Equals(mint) {
		return 0, fmt.Errorf("mint mismatch: got %s want %s", got, mint)
	}
	return binary.LittleEndian.Uint64(data[tokenAmountOff : tokenAmountOff+8]), nil
}
