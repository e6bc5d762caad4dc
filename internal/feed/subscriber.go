package feed

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolarb/internal/chain"
	"poolarb/internal/pricecache"
	"poolarb/internal/registry"
)

// Stream delivers account notifications.
type Stream interface {
	Recv(ctx context.Context) (chain.AccountUpdate, error)
	Close()
}

// Dialer opens a notification stream for one account.
type Dialer func(ctx context.Context, key solana.PublicKey) (Stream, error)

// ChainDialer subscribes through a chain client.
func ChainDialer(client *chain.Client) Dialer {
	return func(ctx context.Context, key solana.PublicKey) (Stream, error) {
		stream, err := client.SubscribeAccount(ctx, key)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}
}

// SubscriberConfig configures reconnection.
type SubscriberConfig struct {
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// Subscriber keeps one subscription per account and forwards every
// notification as an event.
type Subscriber struct {
	cfg    SubscriberConfig
	reg    *registry.Registry
	dial   Dialer
	events chan<- Event
	logger *zap.Logger
}

// NewSubscriber creates a subscriber writing to events.
func NewSubscriber(cfg SubscriberConfig, reg *registry.Registry, dial Dialer, events chan<- Event, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.RetryBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Subscriber{cfg: cfg, reg: reg, dial: dial, events: events, logger: logger}
}

// Run subscribes to every account until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range s.reg.Accounts() {
		key := key
		g.Go(func() error {
			s.follow(gctx, key)
			return nil
		})
	}
	return g.Wait()
}

// follow keeps a subscription to key alive, reconnecting with backoff.
func (s *Subscriber) follow(ctx context.Context, key solana.PublicKey) {
	delay := s.cfg.RetryBackoff
	for ctx.Err() == nil {
		stream, err := s.dial(ctx, key)
		if err != nil {
			s.fail(ctx, key, err)
			if !sleep(ctx, delay) {
				return
			}
			delay = backoff(delay, s.cfg.MaxBackoff)
			continue
		}

		s.logger.Debug("account subscribed", zap.String("account", key.String()))
		received := s.pump(ctx, key, stream)
		stream.Close()
		if received {
			delay = s.cfg.RetryBackoff
		}
		if ctx.Err() != nil {
			return
		}
		if !sleep(ctx, delay) {
			return
		}
		delay = backoff(delay, s.cfg.MaxBackoff)
	}
}

// pump forwards notifications until the stream fails. It reports whether any
// notification was received.
func (s *Subscriber) pump(ctx context.Context, key solana.PublicKey, stream Stream) bool {
	received := false
	for {
		update, err := stream.Recv(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.fail(ctx, key, err)
			}
			return received
		}
		received = true
		for _, ref := range s.reg.Lookup(key) {
			s.emit(ctx, Event{Update: pricecache.Update{
				PoolID:  ref.PoolID,
				Index:   ref.Index,
				Account: update.Account,
				Slot:    update.Slot,
			}})
		}
	}
}

func (s *Subscriber) fail(ctx context.Context, key solana.PublicKey, err error) {
	s.logger.Warn("account subscription failed", zap.String("account", key.String()), zap.Error(err))
	for _, ref := range s.reg.Lookup(key) {
		s.emit(ctx, Event{
			Update: pricecache.Update{PoolID: ref.PoolID, Index: ref.Index},
			Err:    &NetworkError{PoolID: ref.PoolID, Err: err},
		})
	}
}

func (s *Subscriber) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}
