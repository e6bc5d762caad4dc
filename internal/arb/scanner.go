package arb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolarb/internal/metrics"
	"poolarb/internal/model"
	"poolarb/internal/pricecache"
	"poolarb/internal/sink"
)

// ScannerConfig configures the scan loop.
type ScannerConfig struct {
	Base         string
	TradeSize    decimal.Decimal
	MinProfitPct decimal.Decimal
	Interval     time.Duration
}

// CycleResult is the full outcome of one evaluation cycle.
type CycleResult struct {
	Record      model.CycleRecord
	Candidates  []model.Candidate
	Opportunity *model.Opportunity
}

// Scanner evaluates every path against cache snapshots, triggered by quote
// updates or a fixed interval.
type Scanner struct {
	cfg       ScannerConfig
	cache     *pricecache.Cache
	paths     []*model.Path
	evaluator *Evaluator
	selector  *Selector
	signals   sink.SignalSink
	cycles    sink.CycleLogger
	metrics   *metrics.Metrics
	logger    *zap.Logger

	trigger chan struct{}
	serial  atomic.Uint64
	newID   func() string
}

// NewScanner creates a scanner. signals and cycles may be nil.
func NewScanner(
	cfg ScannerConfig,
	cache *pricecache.Cache,
	paths []*model.Path,
	signals sink.SignalSink,
	cycles sink.CycleLogger,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Scanner{
		cfg:       cfg,
		cache:     cache,
		paths:     paths,
		evaluator: NewEvaluator(),
		selector:  NewSelector(cfg.MinProfitPct),
		signals:   signals,
		cycles:    cycles,
		metrics:   m,
		logger:    logger,
		trigger:   make(chan struct{}, 1),
		newID:     uuid.NewString,
	}
}

// ResumeFrom continues cycle serials after n.
func (s *Scanner) ResumeFrom(n uint64) {
	s.serial.Store(n)
}

// Notify requests a cycle. Requests made while one is pending coalesce.
func (s *Scanner) Notify() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run scans until ctx is done. A started cycle always finishes.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("scanner started",
		zap.Int("paths", len(s.paths)),
		zap.Duration("interval", s.cfg.Interval),
		zap.String("min_profit_pct", s.selector.Threshold().String()),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner stopped", zap.Uint64("cycles", s.serial.Load()))
			return nil
		case <-s.trigger:
		case <-ticker.C:
		}

		s.Cycle(context.WithoutCancel(ctx), s.cache.Snapshot())
	}
}

// Cycle evaluates every path against snap, emits the selected opportunity and
// writes the cycle record.
func (s *Scanner) Cycle(ctx context.Context, snap *pricecache.Snapshot) CycleResult {
	started := time.Now()

	candidates := s.evaluator.EvaluateAll(s.paths, snap)
	record := s.buildRecord(snap, candidates)
	result := CycleResult{Record: record, Candidates: candidates}

	outcome := "none"
	if best, ok := s.selector.Select(candidates); ok {
		opp := model.Opportunity{
			ID:         s.newID(),
			PathID:     best.PathID(),
			Direction:  best.Direction,
			Route:      best.Route(),
			Base:       s.cfg.Base,
			ProfitPct:  best.ProfitPct,
			TradeSize:  s.cfg.TradeSize,
			Prices:     best.Prices,
			DetectedAt: snap.Taken,
		}
		result.Opportunity = &opp
		outcome = "opportunity"

		if s.signals != nil {
			if err := s.signals.Publish(ctx, opp.Signal()); err != nil {
				s.logger.Warn("publish signal failed", zap.String("id", opp.ID), zap.Error(err))
			}
		}
		s.metrics.Opportunity(best.Path.Type())
	} else if record.Evaluated == 0 {
		outcome = "unevaluable"
	}

	if s.cycles != nil {
		if err := s.cycles.LogCycle(ctx, record); err != nil {
			s.logger.Warn("log cycle failed", zap.Uint64("serial", record.Serial), zap.Error(err))
		}
	}
	s.metrics.ObserveCycle(outcome, snap.Stats().Valid, time.Since(started))
	return result
}

func (s *Scanner) buildRecord(snap *pricecache.Snapshot, candidates []model.Candidate) model.CycleRecord {
	record := model.CycleRecord{
		Serial:     s.serial.Add(1),
		Timestamp:  snap.Taken,
		Candidates: make([]model.CandidateSummary, 0, len(candidates)),
	}

	firstReason := ""
	for _, c := range candidates {
		summary := model.CandidateSummary{
			PathID:    c.PathID(),
			Direction: c.Direction.String(),
			ProfitPct: c.ProfitPct,
		}
		if c.Evaluated {
			record.Evaluated++
		} else {
			record.Skipped++
			summary.Skipped = true
			summary.Reason = c.Reason
			if firstReason == "" {
				firstReason = c.Reason
			}
		}
		record.Candidates = append(record.Candidates, summary)
	}

	best, ok := Best(candidates)
	if !ok {
		switch {
		case len(candidates) == 0:
			record.FailureReason = "no paths"
		default:
			record.FailureReason = "no evaluable paths: " + firstReason
		}
		return record
	}

	record.Prices = best.Prices
	record.SpreadAbs, record.SpreadPct = spread(best)
	record.NetProfitPct = best.ProfitPct
	record.BestPathID = best.PathID()
	record.BestDirection = best.Direction.String()
	record.BestRoute = best.Route()
	record.TradePossible = s.selector.Qualifies(best)
	if !record.TradePossible {
		record.FailureReason = fmt.Sprintf("best profit %s%% below threshold %s%%",
			best.ProfitPct.StringFixed(6), s.selector.Threshold().String())
	}
	return record
}

// spread is the price gap between the two pools of a single-pair route. Deeper
// routes have no comparable prices, so only the fee-free return is reported.
func spread(c model.Candidate) (decimal.Decimal, decimal.Decimal) {
	if len(c.Prices) == 2 && c.Path.Depth() == 1 {
		a, b := c.Prices[0].Price, c.Prices[1].Price
		abs := a.Sub(b).Abs()
		low := decimal.Min(a, b)
		if !low.IsPositive() {
			return abs, decimal.Zero
		}
		return abs, abs.DivRound(low, divisionDigits).Mul(hundred)
	}
	return decimal.Zero, c.GrossPct
}
