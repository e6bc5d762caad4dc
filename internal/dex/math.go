package dex

import (
	"encoding/binary"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var q128 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)

func u64Big(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// readU128 reads a little-endian u128.
func readU128(data []byte, offset int) *uint256.Int {
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[i] = data[offset+15-i]
	}
	return new(uint256.Int).SetBytes(be)
}

func readI32(data []byte, offset int) int32 {
	return int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
}

func readU16(data []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(data[offset : offset+2])
}

// powInt raises base to a non-negative integer power by squaring, truncating
// intermediate results to digits decimal places.
func powInt(base decimal.Decimal, exp int64, digits int32) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base).Truncate(digits)
		}
		exp >>= 1
		if exp > 0 {
			base = base.Mul(base).Truncate(digits)
		}
	}
	return result
}
