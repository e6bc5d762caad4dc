package pricecache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"poolarb/internal/dex"
	"poolarb/internal/model"
	"poolarb/internal/registry"
)

// Result describes what Apply did with an update.
type Result int

const (
	// Applied means the pool's quote was replaced.
	Applied Result = iota
	// Pending means the pool is still missing accounts, or its accounts were
	// last seen at different slots. The previous quote is kept.
	Pending
	// Ignored means the update was older than the stored account.
	Ignored
	// Invalid means the accounts failed to decode and the quote was marked invalid.
	Invalid
)

// Update is a fresh copy of pool accounts. A poll sets Accounts to every
// account of the pool read at Slot; a subscription sets Index and Account.
type Update struct {
	PoolID   string
	Index    int
	Account  model.AccountData
	Accounts []model.AccountData
	Slot     uint64
}

// DecodeFunc turns a pool's raw accounts into a quote.
type DecodeFunc func(pool *model.Pool, tokenA, tokenB model.Token, accounts []model.AccountData) (model.Quote, error)

// Options configures a Cache.
type Options struct {
	MaxAge          time.Duration
	Decode          DecodeFunc
	Now             func() time.Time
	Logger          *zap.Logger
	OnDecodeFailure func(model.DecodeFailure)
}

type cell struct {
	pool   *model.Pool
	tokenA model.Token
	tokenB model.Token

	mu       sync.Mutex
	accounts []model.AccountData
	slots    []uint64
	present  []bool

	decodeFailures atomic.Uint64
	fetchFailures  atomic.Uint64

	quote atomic.Pointer[model.Quote]
}

// Cache holds the latest quote of every registered pool. Each pool has its own
// cell so updates to different pools never contend.
type Cache struct {
	cells  map[string]*cell
	order  []string
	seq    atomic.Uint64
	maxAge time.Duration
	decode DecodeFunc
	now    func() time.Time
	logger *zap.Logger
	onFail func(model.DecodeFailure)
}

// New creates a cache with one empty cell per registry pool.
func New(reg *registry.Registry, opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Decode == nil {
		opts.Decode = dex.Decode
	}

	c := &Cache{
		cells:  make(map[string]*cell, len(reg.Pools())),
		maxAge: opts.MaxAge,
		decode: opts.Decode,
		now:    opts.Now,
		logger: opts.Logger,
		onFail: opts.OnDecodeFailure,
	}
	for _, pool := range reg.Pools() {
		tokenA, tokenB := reg.Pair(pool)
		n := len(pool.Accounts)
		c.cells[pool.ID] = &cell{
			pool:     pool,
			tokenA:   tokenA,
			tokenB:   tokenB,
			accounts: make([]model.AccountData, n),
			slots:    make([]uint64, n),
			present:  make([]bool, n),
		}
		c.order = append(c.order, pool.ID)
	}
	return c
}

// Apply stores an account update and, once every account of the pool is
// known at the same slot, replaces the pool's quote. A decode failure replaces
// the quote with an invalid one and returns the *dex.DecodeError.
func (c *Cache) Apply(u Update) (Result, error) {
	cl, ok := c.cells[u.PoolID]
	if !ok {
		return Ignored, fmt.Errorf("unknown pool: %s", u.PoolID)
	}
	if u.Accounts != nil {
		if len(u.Accounts) != len(cl.accounts) {
			return Ignored, fmt.Errorf("pool %s: got %d accounts, want %d", u.PoolID, len(u.Accounts), len(cl.accounts))
		}
	} else if u.Index < 0 || u.Index >= len(cl.accounts) {
		return Ignored, fmt.Errorf("pool %s: account index %d out of range", u.PoolID, u.Index)
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if u.Accounts != nil {
		if u.Slot < maxSlot(cl.slots) {
			return Ignored, nil
		}
		for i, acc := range u.Accounts {
			cl.accounts[i] = acc
			cl.slots[i] = u.Slot
			cl.present[i] = true
		}
	} else {
		if cl.present[u.Index] && u.Slot < cl.slots[u.Index] {
			return Ignored, nil
		}
		cl.accounts[u.Index] = u.Account
		cl.slots[u.Index] = u.Slot
		cl.present[u.Index] = true
	}

	for _, ok := range cl.present {
		if !ok {
			return Pending, nil
		}
	}
	slot, ok := commonSlot(cl.slots)
	if !ok {
		return Pending, nil
	}

	now := c.now()
	quote, err := c.decode(cl.pool, cl.tokenA, cl.tokenB, cl.accounts)
	if err != nil {
		cl.decodeFailures.Add(1)
		cl.quote.Store(&model.Quote{
			PoolID:    cl.pool.ID,
			Fee:       cl.pool.Fee,
			Slot:      slot,
			Seq:       c.seq.Add(1),
			UpdatedAt: now,
			Valid:     false,
			Err:       err.Error(),
		})
		c.logger.Warn("pool decode failed",
			zap.String("pool", cl.pool.ID),
			zap.String("kind", string(cl.pool.Kind)),
			zap.Uint64("slot", slot),
			zap.Error(err),
		)
		if c.onFail != nil {
			c.onFail(dex.Failure(cl.pool, slot, cl.accounts, err, now))
		}
		return Invalid, err
	}

	quote.PoolID = cl.pool.ID
	quote.Slot = slot
	quote.Seq = c.seq.Add(1)
	quote.UpdatedAt = now
	cl.quote.Store(&quote)
	return Applied, nil
}

// Put replaces a pool's quote directly, stamping sequence and time.
func (c *Cache) Put(q model.Quote) error {
	cl, ok := c.cells[q.PoolID]
	if !ok {
		return fmt.Errorf("unknown pool: %s", q.PoolID)
	}
	q.Seq = c.seq.Add(1)
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = c.now()
	}
	cl.quote.Store(&q)
	return nil
}

// MarkFailed records a fetch failure. The existing quote is kept and ages
// out through the staleness check.
func (c *Cache) MarkFailed(poolID string, err error) {
	cl, ok := c.cells[poolID]
	if !ok {
		return
	}
	cl.fetchFailures.Add(1)
	c.logger.Debug("pool fetch failed", zap.String("pool", poolID), zap.Error(err))
}

// Quote returns the current quote of a pool.
func (c *Cache) Quote(poolID string) (model.Quote, bool) {
	cl, ok := c.cells[poolID]
	if !ok {
		return model.Quote{}, false
	}
	q := cl.quote.Load()
	if q == nil {
		return model.Quote{}, false
	}
	return *q, true
}

// Seq returns the sequence number of the most recent quote replacement.
func (c *Cache) Seq() uint64 {
	return c.seq.Load()
}

// Snapshot copies every pool's current quote.
func (c *Cache) Snapshot() *Snapshot {
	quotes := make(map[string]model.Quote, len(c.cells))
	for _, id := range c.order {
		if q := c.cells[id].quote.Load(); q != nil {
			quotes[id] = *q
		}
	}
	return &Snapshot{
		Taken:  c.now(),
		MaxAge: c.maxAge,
		Seq:    c.seq.Load(),
		quotes: quotes,
		total:  len(c.order),
	}
}

// PoolHealth reports failure counters of one pool.
type PoolHealth struct {
	PoolID         string
	DecodeFailures uint64
	FetchFailures  uint64
}

// Health returns failure counters for every pool ordered by id.
func (c *Cache) Health() []PoolHealth {
	out := make([]PoolHealth, 0, len(c.order))
	for _, id := range c.order {
		cl := c.cells[id]
		out = append(out, PoolHealth{
			PoolID:         id,
			DecodeFailures: cl.decodeFailures.Load(),
			FetchFailures:  cl.fetchFailures.Load(),
		})
	}
	return out
}

// commonSlot reports the slot shared by every account. Accounts seen at
// different slots would price a state that never existed on chain.
func commonSlot(slots []uint64) (uint64, bool) {
	for _, s := range slots[1:] {
		if s != slots[0] {
			return 0, false
		}
	}
	return slots[0], true
}

func maxSlot(slots []uint64) uint64 {
	var out uint64
	for _, s := range slots {
		if s > out {
			out = s
		}
	}
	return out
}
