package dispatch

import (
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RetryCountHeader carries the number of delivery attempts already failed.
// It travels as message metadata, never in the application body, and is
// incremented by republishing the message; the body itself is never mutated.
const RetryCountHeader = "retry-count"

// RetryPolicy bounds how often a transiently failing message is redelivered
// before it is dead-lettered. The backoff is a fixed delay, not exponential:
// with one in-flight message per queue a longer ramp would only stall the
// queue behind a single poison message.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy mirrors the operational defaults: three attempts, five
// seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}
}

// Exhausted reports whether a message that has already failed count times
// should be dead-lettered instead of retried.
func (p RetryPolicy) Exhausted(count int) bool {
	return count >= p.MaxAttempts
}

// ReadRetryCount extracts the retry counter from delivery headers,
// defaulting to zero when absent or unparseable. Producers and brokers
// encode the value inconsistently, so every integer width plus text forms
// are accepted.
func ReadRetryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}

	switch v := headers[RetryCountHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	case []byte:
		if n, err := strconv.Atoi(string(v)); err == nil {
			return n
		}
	}
	return 0
}
