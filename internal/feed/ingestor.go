package feed

import (
	"context"

	"go.uber.org/zap"

	"poolarb/internal/metrics"
	"poolarb/internal/pricecache"
	"poolarb/internal/sink"
)

// Ingestor is the single consumer that applies feed events to the cache.
type Ingestor struct {
	cache   *pricecache.Cache
	events  chan Event
	notify  func()
	mirror  sink.QuoteMirror
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewIngestor creates an ingestor. notify is called after every applied
// quote; mirror may be nil.
func NewIngestor(cache *pricecache.Cache, buffer int, notify func(), mirror sink.QuoteMirror, m *metrics.Metrics, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = func() {}
	}
	if buffer <= 0 {
		buffer = 1024
	}
	return &Ingestor{
		cache:   cache,
		events:  make(chan Event, buffer),
		notify:  notify,
		mirror:  mirror,
		metrics: m,
		logger:  logger,
	}
}

// Events is the channel feeds write to.
func (i *Ingestor) Events() chan<- Event {
	return i.events
}

// Run applies events until ctx is done.
func (i *Ingestor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-i.events:
			i.Handle(ctx, ev)
		}
	}
}

// Handle applies one event.
func (i *Ingestor) Handle(ctx context.Context, ev Event) {
	poolID := ev.Update.PoolID
	if ev.Err != nil {
		i.cache.MarkFailed(poolID, ev.Err)
		i.metrics.FetchFailure(poolID)
		return
	}

	res, err := i.cache.Apply(ev.Update)
	switch res {
	case pricecache.Applied:
		if i.mirror != nil {
			if q, ok := i.cache.Quote(poolID); ok {
				if err := i.mirror.MirrorQuote(ctx, q); err != nil {
					i.logger.Debug("mirror quote failed", zap.String("pool", poolID), zap.Error(err))
				}
			}
		}
		i.notify()
	case pricecache.Invalid:
		i.metrics.DecodeFailure(poolID)
		i.notify()
	case pricecache.Ignored:
		if err != nil {
			i.logger.Warn("update rejected", zap.String("pool", poolID), zap.Error(err))
		}
	}
}
