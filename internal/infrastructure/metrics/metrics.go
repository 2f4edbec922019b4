package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "jan"
	subsystem = "support_chat"
)

// Support chat metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "turns_total",
			Help:      "Chat turns by transport and outcome",
		},
		[]string{"transport", "outcome"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a chat turn from acceptance to completion",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"transport"},
	)

	StreamChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stream_chunks_total",
			Help:      "Reply fragments relayed to streaming clients",
		},
	)

	ActiveStreamConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_stream_connections",
			Help:      "Open streaming connections",
		},
		[]string{"transport"},
	)

	GenerationCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generation_calls_total",
			Help:      "Reply generation calls by mode and result kind",
		},
		[]string{"mode", "result"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generation_duration_seconds",
			Help:      "Reply generation duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"mode"},
	)

	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_operations_total",
			Help:      "History cache operations by backend and result",
		},
		[]string{"backend", "operation", "result"},
	)

	AdmissionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "admission_decisions_total",
			Help:      "Rate limiter decisions by scope",
		},
		[]string{"scope", "decision"},
	)
)

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordTurn records the outcome of a chat turn.
func RecordTurn(transport, outcome string, duration time.Duration) {
	TurnsTotal.WithLabelValues(transport, outcome).Inc()
	TurnDuration.WithLabelValues(transport).Observe(duration.Seconds())
}

// RecordStreamChunk counts one relayed fragment.
func RecordStreamChunk() {
	StreamChunksTotal.Inc()
}

// StreamConnectionOpened tracks a new streaming connection and returns its release func.
func StreamConnectionOpened(transport string) func() {
	gauge := ActiveStreamConnections.WithLabelValues(transport)
	gauge.Inc()
	return gauge.Dec
}

// RecordGeneration records a generation call.
func RecordGeneration(mode, result string, duration time.Duration) {
	GenerationCallsTotal.WithLabelValues(mode, result).Inc()
	GenerationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordCacheOperation records a cache hit, miss, error, or write.
func RecordCacheOperation(backend, operation, result string) {
	CacheOperationsTotal.WithLabelValues(backend, operation, result).Inc()
}

// RecordAdmission records a rate limiter decision.
func RecordAdmission(scope, decision string) {
	AdmissionDecisionsTotal.WithLabelValues(scope, decision).Inc()
}

// StreamObserver reports streaming turn outcomes to the collectors above.
type StreamObserver struct{}

func (StreamObserver) ObserveTurn(channel, outcome string, duration time.Duration) {
	RecordTurn(channel, outcome, duration)
}

func (StreamObserver) ObserveChunk(string) {
	RecordStreamChunk()
}
