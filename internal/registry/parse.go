package registry

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ParseAccounts converts base58 strings into public keys.
func ParseAccounts(inputs []string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		key, err := solana.PublicKeyFromBase58(input)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
