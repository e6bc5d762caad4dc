package sink

import (
	"context"
	"errors"

	"poolarb/internal/model"
)

// SignalSink receives one signal per emitted opportunity.
type SignalSink interface {
	Publish(ctx context.Context, signal model.Signal) error
}

// CycleLogger receives one record per evaluation cycle.
type CycleLogger interface {
	LogCycle(ctx context.Context, record model.CycleRecord) error
}

// FailureRecorder receives decode failure records.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, failure model.DecodeFailure) error
}

// QuoteMirror receives every applied quote.
type QuoteMirror interface {
	MirrorQuote(ctx context.Context, quote model.Quote) error
}

// Multi fans records out to several sinks. Every sink is called even when an
// earlier one fails; the errors are joined.
type Multi struct {
	Signals  []SignalSink
	Cycles   []CycleLogger
	Failures []FailureRecorder
	Quotes   []QuoteMirror
}

// Publish implements SignalSink.
func (m *Multi) Publish(ctx context.Context, signal model.Signal) error {
	var errs []error
	for _, s := range m.Signals {
		if err := s.Publish(ctx, signal); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogCycle implements CycleLogger.
func (m *Multi) LogCycle(ctx context.Context, record model.CycleRecord) error {
	var errs []error
	for _, c := range m.Cycles {
		if err := c.LogCycle(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordFailure implements FailureRecorder.
func (m *Multi) RecordFailure(ctx context.Context, failure model.DecodeFailure) error {
	var errs []error
	for _, f := range m.Failures {
		if err := f.RecordFailure(ctx, failure); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MirrorQuote implements QuoteMirror.
func (m *Multi) MirrorQuote(ctx context.Context, quote model.Quote) error {
	var errs []error
	for _, q := range m.Quotes {
		if err := q.MirrorQuote(ctx, quote); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
