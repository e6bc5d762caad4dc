package dex

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"poolarb/internal/model"
)

// Failure builds the record written for a pool whose accounts failed to decode.
func Failure(pool *model.Pool, slot uint64, accounts []model.AccountData, err error, now time.Time) model.DecodeFailure {
	rec := model.DecodeFailure{
		PoolID:    pool.ID,
		Kind:      pool.Kind,
		Slot:      slot,
		Error:     err.Error(),
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
	for _, key := range pool.Accounts {
		rec.Accounts = append(rec.Accounts, key.String())
	}
	for _, acc := range accounts {
		rec.RawHex = append(rec.RawHex, hexutil.Encode(acc.Data))
	}
	return rec
}
