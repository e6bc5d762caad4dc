package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the scanner's collectors. A nil *Metrics is a no-op.
type Metrics struct {
	Cycles         *prometheus.CounterVec
	Opportunities  *prometheus.CounterVec
	DecodeFailures *prometheus.CounterVec
	FetchFailures  *prometheus.CounterVec
	UsablePools    prometheus.Gauge
	CycleDuration  prometheus.Histogram
}

// New registers the collectors on reg under the given namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_cycles_total",
			Help:      "Evaluation cycles completed, by outcome.",
		}, []string{"outcome"}),
		Opportunities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Opportunities emitted, by path type.",
		}, []string{"type"}),
		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Pool account decode failures.",
		}, []string{"pool"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Pool account fetch failures after retries.",
		}, []string{"pool"}),
		UsablePools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "usable_pools",
			Help:      "Pools with a valid, fresh quote in the last snapshot.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_cycle_duration_seconds",
			Help:      "Time spent evaluating one snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Cycles, m.Opportunities, m.DecodeFailures, m.FetchFailures, m.UsablePools, m.CycleDuration)
	}
	return m
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(outcome string, usable int, took time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(outcome).Inc()
	m.UsablePools.Set(float64(usable))
	m.CycleDuration.Observe(took.Seconds())
}

// Opportunity counts an emitted opportunity.
func (m *Metrics) Opportunity(pathType string) {
	if m == nil {
		return
	}
	m.Opportunities.WithLabelValues(pathType).Inc()
}

// DecodeFailure counts a decode failure for a pool.
func (m *Metrics) DecodeFailure(poolID string) {
	if m == nil {
		return
	}
	m.DecodeFailures.WithLabelValues(poolID).Inc()
}

// FetchFailure counts a fetch failure for a pool.
func (m *Metrics) FetchFailure(poolID string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(poolID).Inc()
}

// Serve exposes gatherer on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
