package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SagaMetrics exports saga lifecycle counters to Prometheus. It implements
// the saga observer contract, so one instance can watch every run.
type SagaMetrics struct {
	StepFailures         *prometheus.CounterVec
	Compensations        *prometheus.CounterVec
	CompensationFailures *prometheus.CounterVec
}

// NewSagaMetrics builds and registers the collectors with reg; pass
// prometheus.DefaultRegisterer outside of tests.
func NewSagaMetrics(reg prometheus.Registerer) *SagaMetrics {
	stepFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: "saga",
		Name:      "step_failures_total",
		Help:      "Saga steps that failed and triggered a rollback.",
	}, []string{"step"})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: "saga",
		Name:      "compensations_total",
		Help:      "Compensations executed during rollback.",
	}, []string{"step"})
	compensationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: "saga",
		Name:      "compensation_failures_total",
		Help:      "Compensations that failed and need manual intervention.",
	}, []string{"step"})

	reg.MustRegister(stepFailures, compensations, compensationFailures)
	return &SagaMetrics{
		StepFailures:         stepFailures,
		Compensations:        compensations,
		CompensationFailures: compensationFailures,
	}
}

func (m *SagaMetrics) StepStarted(context.Context, string)   {}
func (m *SagaMetrics) StepSucceeded(context.Context, string) {}

func (m *SagaMetrics) StepFailed(_ context.Context, step string, _ error) {
	m.StepFailures.WithLabelValues(step).Inc()
}

func (m *SagaMetrics) StepCompensated(_ context.Context, step string) {
	m.Compensations.WithLabelValues(step).Inc()
}

func (m *SagaMetrics) CompensationFailed(_ context.Context, step string, _ error) {
	m.CompensationFailures.WithLabelValues(step).Inc()
}

// PrometheusHandler serves the default registry in the exposition format.
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
