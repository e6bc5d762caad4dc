package model

// DecodeFailure records a pool whose accounts could not be decoded.
type DecodeFailure struct {
	PoolID    string   `json:"pool_id"`
	Kind      DexKind  `json:"kind"`
	Slot      uint64   `json:"slot"`
	Accounts  []string `json:"accounts"`
	RawHex    []string `json:"raw_hex,omitempty"`
	Error     string   `json:"error"`
	Timestamp string   `json:"timestamp"`
}
