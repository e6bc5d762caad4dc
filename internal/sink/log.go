package sink

import (
	"context"

	"go.uber.org/zap"

	"poolarb/internal/model"
)

// Log writes signals and cycle records to a zap logger.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a log sink.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Publish(_ context.Context, signal model.Signal) error {
	l.logger.Info("opportunity",
		zap.String("id", signal.ID),
		zap.String("route", signal.Route),
		zap.Int("path_id", signal.PathID),
		zap.String("direction", signal.Direction),
		zap.String("profit_pct", signal.ProfitPct.StringFixed(6)),
		zap.String("trade_size", signal.TradeSize.String()),
		zap.String("base", signal.Base),
	)
	return nil
}

func (l *Log) LogCycle(_ context.Context, record model.CycleRecord) error {
	fields := []zap.Field{
		zap.Uint64("serial", record.Serial),
		zap.Int("evaluated", record.Evaluated),
		zap.Int("skipped", record.Skipped),
		zap.Bool("trade_possible", record.TradePossible),
		zap.String("net_profit_pct", record.NetProfitPct.StringFixed(6)),
		zap.String("spread_pct", record.SpreadPct.StringFixed(6)),
	}
	if record.BestRoute != "" {
		fields = append(fields, zap.String("best_route", record.BestRoute))
	}
	if record.FailureReason != "" {
		fields = append(fields, zap.String("reason", record.FailureReason))
	}
	l.logger.Debug("scan cycle", fields...)
	return nil
}

func (l *Log) RecordFailure(_ context.Context, failure model.DecodeFailure) error {
	l.logger.Warn("decode failure",
		zap.String("pool", failure.PoolID),
		zap.String("kind", string(failure.Kind)),
		zap.Uint64("slot", failure.Slot),
		zap.String("error", failure.Error),
	)
	return nil
}
