package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolarb/internal/arb"
	"poolarb/internal/chain"
	"poolarb/internal/config"
	"poolarb/internal/feed"
	"poolarb/internal/metrics"
	"poolarb/internal/model"
	"poolarb/internal/pricecache"
	"poolarb/internal/sink"
	"poolarb/internal/storage"
	"poolarb/internal/storage/postgres"
	"poolarb/internal/storage/redis"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	reg, generated, err := buildCatalog(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(cfg.RPCURL, cfg.WSURL, cfg.Commitment)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry, "poolarb")

	logSink := sink.NewLog(logger)
	out := &sink.Multi{
		Signals:  []sink.SignalSink{logSink},
		Cycles:   []sink.CycleLogger{logSink},
		Failures: []sink.FailureRecorder{logSink},
	}
	var mirror sink.QuoteMirror

	if cfg.SignalsOut != "" {
		out.Signals = append(out.Signals, storage.NewJsonlStorage(cfg.SignalsOut))
	}
	if cfg.CyclesOut != "" {
		out.Cycles = append(out.Cycles, storage.NewJsonlStorage(cfg.CyclesOut))
	}
	if cfg.DecodeErrorsOut != "" {
		out.Failures = append(out.Failures, storage.NewJsonlStorage(cfg.DecodeErrorsOut))
	}
	if cfg.RedisAddr != "" {
		publisher, err := redis.New(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RedisChannel,
			QuoteTTL: cfg.MaxQuoteAge,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer publisher.Close()
		out.Signals = append(out.Signals, publisher)
		mirror = publisher
	}

	var resumeSerial uint64
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, "scanner:"+cfg.Base)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if serial, ok, err := store.LoadSerial(ctx); err != nil {
			return fmt.Errorf("load scanner state: %w", err)
		} else if ok {
			resumeSerial = serial
		}
		out.Signals = append(out.Signals, store)
		out.Cycles = append(out.Cycles, store)
	} else if cfg.StateFile != "" {
		checkpoint := storage.NewCheckpointStore(cfg.StateFile)
		if serial, ok, err := checkpoint.LoadSerial(ctx); err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		} else if ok {
			resumeSerial = serial
		}
		out.Cycles = append(out.Cycles, checkpoint)
	}

	cache := pricecache.New(reg, pricecache.Options{
		MaxAge: cfg.MaxQuoteAge,
		Logger: logger,
		OnDecodeFailure: func(f model.DecodeFailure) {
			if err := out.RecordFailure(context.Background(), f); err != nil {
				logger.Warn("record decode failure", zap.String("pool", f.PoolID), zap.Error(err))
			}
		},
	})

	scanner := arb.NewScanner(arb.ScannerConfig{
		Base:         cfg.Base,
		TradeSize:    cfg.TradeSize,
		MinProfitPct: cfg.MinProfitPct,
		Interval:     cfg.ScanInterval,
	}, cache, generated, sink.NewCooldown(out, cfg.Cooldown), out, m, logger)
	scanner.ResumeFrom(resumeSerial)

	ingestor := feed.NewIngestor(cache, 4096, scanner.Notify, mirror, m, logger)
	poller := feed.NewPoller(feed.PollerConfig{
		Interval:     cfg.PollInterval,
		PoolTimeout:  cfg.PoolTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, reg, chainClient, ingestor.Events(), logger)

	logger.Info("scan start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("mode", cfg.Mode),
		zap.String("commitment", cfg.Commitment),
		zap.String("base", cfg.Base),
		zap.Int("pools", len(reg.Pools())),
		zap.Int("paths", len(generated)),
		zap.String("min_profit_pct", cfg.MinProfitPct.String()),
		zap.Duration("cooldown", cfg.Cooldown),
		zap.Uint64("resume_serial", resumeSerial),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ingestor.Run(gctx) })
	g.Go(func() error { return scanner.Run(gctx) })
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(gctx, cfg.MetricsAddr, promRegistry, logger) })
	}

	var subscriber *feed.Subscriber
	if cfg.Mode == config.ModeSubscribe {
		subscriber = feed.NewSubscriber(feed.SubscriberConfig{
			RetryBackoff: cfg.RetryBackoff,
			MaxBackoff:   cfg.PollInterval * 10,
		}, reg, feed.ChainDialer(chainClient), ingestor.Events(), logger)
	}
	source := feed.NewSource(cfg.Mode, poller, subscriber, logger)
	g.Go(func() error { return source.Run(gctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("scan stopped")
	return nil
}
