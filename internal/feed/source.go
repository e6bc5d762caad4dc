package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolarb/internal/config"
)

// Source feeds the cache in the configured mode.
type Source struct {
	mode       string
	poller     *Poller
	subscriber *Subscriber
	logger     *zap.Logger
}

// NewSource creates a source. subscriber is only used in subscribe mode.
func NewSource(mode string, poller *Poller, subscriber *Subscriber, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{mode: mode, poller: poller, subscriber: subscriber, logger: logger}
}

// Run feeds the cache until ctx is done. Subscribe mode keeps the poller
// running at the poll interval: notifications only arrive for accounts that
// change, so a quiet pool is refreshed by polls alone.
func (s *Source) Run(ctx context.Context) error {
	switch s.mode {
	case config.ModePoll:
		return s.poller.Run(ctx)
	case config.ModeSubscribe:
		if s.subscriber == nil {
			return fmt.Errorf("subscribe mode without subscriber")
		}
		s.logger.Info("feed start", zap.String("mode", s.mode))
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.poller.Run(gctx) })
		g.Go(func() error { return s.subscriber.Run(gctx) })
		return g.Wait()
	default:
		return fmt.Errorf("unsupported feed mode: %s", s.mode)
	}
}
