package feed

import (
	"fmt"

	"poolarb/internal/pricecache"
)

// NetworkError reports a failed fetch or subscription for one pool.
type NetworkError struct {
	PoolID string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch pool %s: %v", e.PoolID, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Event is one message for the ingestor: an account update, or a network
// failure when Err is set.
type Event struct {
	Update pricecache.Update
	Err    error
}
