package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InstructionMetrics records program instruction activity segmented by
// opcode and outcome.
type InstructionMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	instructionMetricsOnce sync.Once
	instructionRegistry    *InstructionMetrics
)

// Instructions returns the lazily-initialised instruction metrics registry.
func Instructions() *InstructionMetrics {
	instructionMetricsOnce.Do(func() {
		instructionRegistry = &InstructionMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketchain",
				Subsystem: "program",
				Name:      "instructions_total",
				Help:      "Total program instructions segmented by opcode and outcome.",
			}, []string{"opcode", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketchain",
				Subsystem: "program",
				Name:      "errors_total",
				Help:      "Total program instruction failures segmented by opcode.",
			}, []string{"opcode"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "marketchain",
				Subsystem: "program",
				Name:      "instruction_duration_seconds",
				Help:      "Latency distribution for program instruction execution.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"opcode"}),
		}
		prometheus.MustRegister(
			instructionRegistry.requests,
			instructionRegistry.errors,
			instructionRegistry.latency,
		)
	})
	return instructionRegistry
}

// Observe records one instruction execution.
func (m *InstructionMetrics) Observe(opcode string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(opcode).Inc()
	}
	m.requests.WithLabelValues(opcode, outcome).Inc()
	m.latency.WithLabelValues(opcode).Observe(duration.Seconds())
}
