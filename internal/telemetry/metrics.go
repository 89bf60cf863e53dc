// Package telemetry instruments the dispatch pipeline with Prometheus
// metrics and OpenTelemetry spans. Both are plain middleware.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/middleware"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the dispatch collectors for one registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	dispatches   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	stateChanges prometheus.Counter
}

// NewMetrics registers the dispatch collectors with reg. A nil reg uses a
// fresh private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hafiza",
			Name:      "dispatches_total",
			Help:      "Dispatched actions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hafiza",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent in the dispatch pipeline, including payload resolution.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
		stateChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "hafiza",
			Name:      "state_changes_total",
			Help:      "Dispatches that produced a new snapshot.",
		}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Middleware records every dispatch.
func (m *Metrics) Middleware() middleware.Middleware {
	return func(api middleware.API) func(middleware.Next) middleware.Next {
		return func(next middleware.Next) middleware.Next {
			return func(ctx context.Context, a action.Action) error {
				before := api.GetState()
				start := time.Now()

				err := next(ctx, a)

				m.duration.WithLabelValues(a.Kind).Observe(time.Since(start).Seconds())
				outcome := OutcomeOK
				if err != nil {
					outcome = OutcomeError
				}
				m.dispatches.WithLabelValues(a.Kind, outcome).Inc()
				if err == nil && api.GetState() != before {
					m.stateChanges.Inc()
				}
				return err
			}
		}
	}
}

// Sample is one counter or histogram series flattened for display.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Snapshot gathers the current values of the hafiza collectors. Histograms
// report their sample count. Returns nil when the registry cannot be
// gathered from.
func (m *Metrics) Snapshot() ([]Sample, error) {
	if m.gatherer == nil {
		return nil, nil
	}
	families, err := m.gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var out []Sample
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			out = append(out, Sample{
				Name:   mf.GetName(),
				Labels: labels(metric),
				Value:  sampleValue(mf.GetType(), metric),
			})
		}
	}
	return out, nil
}

func labels(m *dto.Metric) map[string]string {
	if len(m.GetLabel()) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return 0
	}
}
