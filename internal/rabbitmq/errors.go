package rabbitmq

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	// ErrNotConnected is returned when a channel is requested before Connect
	// succeeded or after the connection was lost.
	ErrNotConnected = errors.New("rabbitmq: not connected")

	// ErrConnectionClosed is returned when the underlying connection has been
	// closed by the broker or by Close.
	ErrConnectionClosed = errors.New("rabbitmq: connection is closed")

	// ErrConnectionTimeout is returned when dialing the broker exceeds the
	// connect timeout.
	ErrConnectionTimeout = errors.New("rabbitmq: connection timeout")
)

// ConnectionError wraps a failure to establish or keep the broker connection.
type ConnectionError struct {
	Op        string
	URL       string
	Err       error
	Timestamp time.Time
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("rabbitmq connection error: %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TopologyError wraps a failed exchange, queue, or binding declaration.
// Conflicting redeclarations surface here rather than being swallowed.
type TopologyError struct {
	Component string
	Name      string
	Err       error
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("rabbitmq topology error: declare %s %q: %v", e.Component, e.Name, e.Err)
}

func (e *TopologyError) Unwrap() error {
	return e.Err
}

// SanitizeURL strips credentials from a broker URL for logging.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(invalid url)"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.Redacted()
}
