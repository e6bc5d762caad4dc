package pricecache

import (
	"time"

	"poolarb/internal/model"
)

// Reasons a quote is not usable.
const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
	ReasonStale   = "stale"
)

// Snapshot is an immutable copy of the cache at one instant.
type Snapshot struct {
	Taken  time.Time
	MaxAge time.Duration
	Seq    uint64

	quotes map[string]model.Quote
	total  int
}

// NewSnapshot builds a snapshot from explicit quotes.
func NewSnapshot(taken time.Time, maxAge time.Duration, quotes []model.Quote) *Snapshot {
	s := &Snapshot{
		Taken:  taken,
		MaxAge: maxAge,
		quotes: make(map[string]model.Quote, len(quotes)),
		total:  len(quotes),
	}
	for _, q := range quotes {
		s.quotes[q.PoolID] = q
		if q.Seq > s.Seq {
			s.Seq = q.Seq
		}
	}
	return s
}

// Quote returns the captured quote of a pool, usable or not.
func (s *Snapshot) Quote(poolID string) (model.Quote, bool) {
	q, ok := s.quotes[poolID]
	return q, ok
}

// Usable returns the pool's quote if it is present, valid and fresh.
// Otherwise reason names why it cannot be used.
func (s *Snapshot) Usable(poolID string) (model.Quote, bool, string) {
	q, ok := s.quotes[poolID]
	if !ok {
		return model.Quote{}, false, ReasonMissing
	}
	if !q.Valid {
		if q.Err != "" {
			return q, false, ReasonInvalid + ": " + q.Err
		}
		return q, false, ReasonInvalid
	}
	if s.MaxAge > 0 && q.Age(s.Taken) > s.MaxAge {
		return q, false, ReasonStale
	}
	return q, true, ""
}

// Stats summarizes the snapshot.
type Stats struct {
	Total   int
	Valid   int
	Stale   int
	Invalid int
	Missing int
}

// Stats counts pools by usability.
func (s *Snapshot) Stats() Stats {
	st := Stats{Total: s.total}
	for id := range s.quotes {
		_, ok, reason := s.Usable(id)
		switch {
		case ok:
			st.Valid++
		case reason == ReasonStale:
			st.Stale++
		default:
			st.Invalid++
		}
	}
	st.Missing = st.Total - len(s.quotes)
	if st.Missing < 0 {
		st.Missing = 0
	}
	return st
}
