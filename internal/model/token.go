package model

import "github.com/gagliardetto/solana-go"

// Token is an SPL token known to the registry.
type Token struct {
	Symbol   string           `json:"symbol"`
	Mint     solana.PublicKey `json:"mint"`
	Decimals uint8            `json:"decimals"`
}
