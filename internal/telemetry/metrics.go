// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeranaias/smartdocs-tui/internal/model"
	"github.com/jeranaias/smartdocs-tui/internal/stream"
)

// Metrics holds the Prometheus collectors for answer streams. Each
// instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	sessions   *prometheus.CounterVec
	duration   prometheus.Histogram
	firstDelta prometheus.Histogram
	deltas     prometheus.Counter
	dropped    prometheus.Counter
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartdocs",
			Name:      "stream_sessions_total",
			Help:      "Answer stream sessions by final state and error type.",
		}, []string{"state", "error_type"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartdocs",
			Name:      "stream_duration_seconds",
			Help:      "Wall time from stream open to terminal state.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		firstDelta: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartdocs",
			Name:      "stream_first_delta_seconds",
			Help:      "Time from stream open to the first answer text.",
			Buckets:   prometheus.DefBuckets,
		}),
		deltas: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smartdocs",
			Name:      "stream_deltas_total",
			Help:      "Answer text fragments received.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "smartdocs",
			Name:      "stream_payloads_dropped_total",
			Help:      "Stream payloads skipped because they did not decode.",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SessionFinished implements stream.Observer.
func (m *Metrics) SessionFinished(state stream.State, errType stream.ErrorType, stats *model.Statistics) {
	errLabel := "none"
	if errType != stream.ErrTypeUnknown {
		errLabel = errType.String()
	}
	m.sessions.WithLabelValues(state.String(), errLabel).Inc()

	if stats == nil {
		return
	}
	m.duration.Observe(stats.TotalDuration.Seconds())
	m.deltas.Add(float64(stats.Deltas))
	if stats.Deltas > 0 {
		m.firstDelta.Observe(stats.TimeToFirstDelta.Seconds())
	}
}

// PayloadDropped implements stream.Observer.
func (m *Metrics) PayloadDropped() {
	m.dropped.Inc()
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Printf("METRICS_LISTEN | addr=%s", addr)
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
