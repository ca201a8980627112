package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks intake sessions by lifecycle event.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desk_sessions_total",
			Help: "Total number of intake sessions by outcome (started, submitted, cancelled, failed).",
		},
		[]string{"outcome"},
	)

	// Tracks Telegram Bot API calls.
	TelegramRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_api_requests_total",
			Help: "Total number of Telegram Bot API requests made (by method and status).",
		},
		[]string{"method", "status"},
	)

	// Measures duration of Telegram Bot API calls.
	TelegramRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telegram_api_request_duration_seconds",
			Help:    "Duration of Telegram Bot API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"method"},
	)

	// Measures quote snapshot assembly (store read + market lookups).
	QuoteFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "desk_quote_fetch_duration_seconds",
			Help:    "Duration of quote snapshot assembly in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"}, // ok | unavailable
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desk_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// silently ignore counters; they're not meant for duration tracking
	}
}

func IncSession(outcome string) {
	SessionsTotal.WithLabelValues(outcome).Inc()
}

func IncTelegramRequest(method, status string) {
	TelegramRequestsTotal.WithLabelValues(method, status).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}
