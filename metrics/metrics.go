// Package metrics exposes Prometheus instrumentation for the notification
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travel_notify",
			Name:      "messages_consumed_total",
			Help:      "Deliveries consumed, by queue and outcome.",
		},
		[]string{"queue", "result"},
	)

	messageRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travel_notify",
			Name:      "message_retries_total",
			Help:      "Deliveries republished for a retry attempt, by queue.",
		},
		[]string{"queue"},
	)

	emailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "travel_notify",
			Name:      "email_send_duration_seconds",
			Help:      "Time spent delivering one email to the SMTP server.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

// RecordConsumed counts one consumed delivery. Result is one of "processed",
// "dropped", "rejected" or "dead_lettered".
func RecordConsumed(queue, result string) {
	messagesConsumed.WithLabelValues(queue, result).Inc()
}

// RecordRetry counts one retry republish.
func RecordRetry(queue string) {
	messageRetries.WithLabelValues(queue).Inc()
}

// ObserveEmailSend records the duration of one email delivery attempt.
func ObserveEmailSend(result string, elapsed time.Duration) {
	emailSendDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}
