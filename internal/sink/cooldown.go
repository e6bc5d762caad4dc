package sink

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"poolarb/internal/model"
)

// Cooldown suppresses repeated signals for the same path and direction within
// a window. A zero window forwards every signal.
type Cooldown struct {
	next   SignalSink
	window time.Duration
	seen   *gocache.Cache
}

// NewCooldown wraps next with a suppression window.
func NewCooldown(next SignalSink, window time.Duration) *Cooldown {
	c := &Cooldown{next: next, window: window}
	if window > 0 {
		c.seen = gocache.New(window, 2*window)
	}
	return c
}

// Publish forwards the signal unless its key is still cooling down.
func (c *Cooldown) Publish(ctx context.Context, signal model.Signal) error {
	if c.seen != nil {
		if err := c.seen.Add(cooldownKey(signal), struct{}{}, c.window); err != nil {
			return nil
		}
	}
	return c.next.Publish(ctx, signal)
}

func cooldownKey(signal model.Signal) string {
	return fmt.Sprintf("%d:%s", signal.PathID, signal.Direction)
}
