package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolarb/internal/chain"
	"poolarb/internal/model"
	"poolarb/internal/pricecache"
	"poolarb/internal/registry"
)

// AccountFetcher reads accounts over RPC.
type AccountFetcher interface {
	GetAccounts(ctx context.Context, keys []solana.PublicKey) (chain.Accounts, error)
}

// PollerConfig configures polling.
type PollerConfig struct {
	Interval     time.Duration
	PoolTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Concurrency  int
}

// Poller fetches every pool's accounts on an interval and forwards them as events.
type Poller struct {
	cfg     PollerConfig
	reg     *registry.Registry
	fetcher AccountFetcher
	events  chan<- Event
	logger  *zap.Logger
}

// NewPoller creates a poller writing to events.
func NewPoller(cfg PollerConfig, reg *registry.Registry, fetcher AccountFetcher, events chan<- Event, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	return &Poller{cfg: cfg, reg: reg, fetcher: fetcher, events: events, logger: logger}
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.PollOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce fetches every pool concurrently. Each pool is bounded by the pool
// timeout, so a slow pool cannot hold back the others. It returns the number
// of pools that failed.
func (p *Poller) PollOnce(ctx context.Context) int {
	var (
		g      errgroup.Group
		failed = make(chan struct{}, len(p.reg.Pools()))
	)
	g.SetLimit(p.cfg.Concurrency)

	for _, pool := range p.reg.Pools() {
		pool := pool
		g.Go(func() error {
			if err := p.pollPool(ctx, pool); err != nil {
				failed <- struct{}{}
				p.logger.Warn("poll pool failed", zap.String("pool", pool.ID), zap.Error(err))
				p.emit(ctx, Event{Update: pricecache.Update{PoolID: pool.ID}, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()
	close(failed)
	return len(failed)
}

func (p *Poller) pollPool(ctx context.Context, pool *model.Pool) error {
	var res chain.Accounts
	err := withRetry(ctx, p.cfg.MaxRetries, p.cfg.RetryBackoff, func(ctx context.Context) error {
		callCtx, cancel := p.poolContext(ctx)
		defer cancel()

		var err error
		res, err = p.fetcher.GetAccounts(callCtx, pool.Accounts)
		if err != nil {
			return err
		}
		for i, acc := range res.Items {
			if acc == nil {
				return fmt.Errorf("account %s not found", pool.Accounts[i])
			}
		}
		return nil
	})
	if err != nil {
		return &NetworkError{PoolID: pool.ID, Err: err}
	}

	accounts := make([]model.AccountData, len(res.Items))
	for i, acc := range res.Items {
		accounts[i] = *acc
	}
	p.emit(ctx, Event{Update: pricecache.Update{
		PoolID:   pool.ID,
		Accounts: accounts,
		Slot:     res.Slot,
	}})
	return nil
}

func (p *Poller) poolContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.PoolTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.PoolTimeout)
}

func (p *Poller) emit(ctx context.Context, ev Event) {
	select {
	case p.events <- ev:
	case <-ctx.Done():
	}
}
