// Package redis publishes signals and mirrors quotes using go-redis/v9.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"poolarb/internal/model"
)

// Config holds connection and key parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	QuoteTTL time.Duration
}

// Publisher sends signals over Pub/Sub and keeps a hash per pool quote.
type Publisher struct {
	rdb      *redis.Client
	channel  string
	quoteTTL time.Duration
}

// New connects and pings Redis.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewWithClient(rdb, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, cfg Config) *Publisher {
	channel := cfg.Channel
	if channel == "" {
		channel = "poolarb:signals"
	}
	return &Publisher{rdb: rdb, channel: channel, quoteTTL: cfg.QuoteTTL}
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

// Publish sends the signal as JSON on the signal channel.
func (p *Publisher) Publish(ctx context.Context, signal model.Signal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("redis: marshal signal: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", p.channel, err)
	}
	return nil
}

// MirrorQuote stores the quote under poolarb:quote:<pool>.
func (p *Publisher) MirrorQuote(ctx context.Context, q model.Quote) error {
	key := QuoteKey(q.PoolID)
	pipe := p.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"price":      q.Price.String(),
		"fee":        q.Fee.String(),
		"liquidity":  q.Liquidity.String(),
		"slot":       q.Slot,
		"seq":        q.Seq,
		"updated_at": q.UpdatedAt.UnixMilli(),
		"valid":      q.Valid,
	})
	if p.quoteTTL > 0 {
		pipe.Expire(ctx, key, p.quoteTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: mirror quote %s: %w", q.PoolID, err)
	}
	return nil
}

// QuoteKey is the hash key of a pool's mirrored quote.
func QuoteKey(poolID string) string {
	return "poolarb:quote:" + poolID
}
