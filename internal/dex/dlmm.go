package dex

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Meteora LbPair layout.
const (
	dlmmActiveIDOff = 76
	dlmmBinStepOff  = 80
	dlmmMinLen      = 82

	// powDigits bounds intermediate precision of the bin price power.
	powDigits = 40
)

var bpsDenominator = decimal.NewFromInt(10000)

func decodeBinned(in Input) (reading, error) {
	acc := in.Accounts[0]
	if !acc.Owner.Equals(MeteoraDLMMProgramID) {
		return reading{}, fmt.Errorf("owner %s is not %s", acc.Owner, MeteoraDLMMProgramID)
	}
	if len(acc.Data) < dlmmMinLen {
		return reading{}, fmt.Errorf("lb pair too short: %d bytes, need %d", len(acc.Data), dlmmMinLen)
	}

	activeID := readI32(acc.Data, dlmmActiveIDOff)
	binStep := readU16(acc.Data, dlmmBinStepOff)
	if binStep == 0 {
		return reading{}, fmt.Errorf("zero bin step")
	}

	price := binPrice(activeID, binStep, in.TokenA.Decimals, in.TokenB.Decimals)
	if price.IsZero() {
		return reading{}, fmt.Errorf("price underflow at bin %d", activeID)
	}
	return reading{price: price, liquidity: decimal.Zero}, nil
}

// binPrice computes (1 + binStep/10000)^activeID * 10^(decA-decB).
func binPrice(activeID int32, binStep uint16, decA, decB uint8) decimal.Decimal {
	base := decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(binStep)).Div(bpsDenominator))
	exp := int64(activeID)
	adjust := decimal.New(1, int32(decA)-int32(decB))
	if exp >= 0 {
		return powInt(base, exp, powDigits).Mul(adjust).Truncate(priceDigits)
	}
	return adjust.DivRound(powInt(base, -exp, powDigits), priceDigits)
}
