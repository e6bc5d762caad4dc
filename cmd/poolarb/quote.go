package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolarb/internal/arb"
	"poolarb/internal/chain"
	"poolarb/internal/feed"
	"poolarb/internal/pricecache"
	"poolarb/internal/sink"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
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

	cache := pricecache.New(reg, pricecache.Options{MaxAge: cfg.MaxQuoteAge, Logger: logger})
	ingestor := feed.NewIngestor(cache, 0, nil, nil, nil, logger)

	// Sized for one full poll so the events can be drained afterwards.
	events := make(chan feed.Event, len(reg.Pools()))
	poller := feed.NewPoller(feed.PollerConfig{
		PoolTimeout:  cfg.PoolTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, reg, chainClient, events, logger)
	failed := poller.PollOnce(ctx)
	close(events)
	for ev := range events {
		ingestor.Handle(ctx, ev)
	}

	snap := cache.Snapshot()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tKIND\tPAIR\tPRICE\tFEE\tSLOT\tSTATUS")
	for _, pool := range reg.Pools() {
		q, ok, reason := snap.Usable(pool.ID)
		status := "ok"
		if !ok {
			status = reason
		}
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%s\t%d\t%s\n",
			pool.ID, pool.Kind, pool.TokenA, pool.TokenB, q.Price.String(), pool.Fee.String(), q.Slot, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	scanner := arb.NewScanner(arb.ScannerConfig{
		Base:         cfg.Base,
		TradeSize:    cfg.TradeSize,
		MinProfitPct: cfg.MinProfitPct,
	}, cache, generated, sink.NewLog(logger), nil, nil, logger)
	res := scanner.Cycle(ctx, snap)

	fmt.Fprintf(cmd.OutOrStdout(), "\nevaluated %d, skipped %d, failed pools %d\n", res.Record.Evaluated, res.Record.Skipped, failed)
	if res.Record.BestRoute != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "best: %s  net %s%%\n", res.Record.BestRoute, res.Record.NetProfitPct.StringFixed(6))
	}
	if res.Opportunity != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "opportunity %s above threshold %s%%\n", res.Opportunity.ID, cfg.MinProfitPct.String())
	} else if res.Record.FailureReason != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "no opportunity: %s\n", res.Record.FailureReason)
	}

	logger.Debug("quote done", zap.Uint64("seq", snap.Seq))
	return nil
}
