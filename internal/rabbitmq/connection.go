package rabbitmq

import (
	"context"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConnectionManager owns the process-wide broker connection. It is created
// once at startup, handed to the consumers, and torn down once at shutdown.
// After the initial Connect succeeds, lost connections are re-dialed in a
// background loop with a bounded recovery interval; the initial failure is
// fatal and surfaced to the caller.
type ConnectionManager struct {
	url            string
	recoveryDelay  time.Duration
	connectTimeout time.Duration
	logger         *slog.Logger

	mu          sync.RWMutex
	conn        *amqp.Connection
	connected   bool
	notifyClose chan *amqp.Error

	done      chan struct{}
	closeOnce sync.Once
}

// ConnectionOption configures the ConnectionManager.
type ConnectionOption func(*ConnectionManager)

// WithConnectionLogger sets the logger.
func WithConnectionLogger(logger *slog.Logger) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.logger = logger
	}
}

// WithRecoveryDelay sets the interval between reconnection attempts.
func WithRecoveryDelay(delay time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.recoveryDelay = delay
	}
}

// WithConnectTimeout bounds each dial attempt.
func WithConnectTimeout(timeout time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.connectTimeout = timeout
	}
}

// NewConnectionManager creates a connection manager for the given AMQP URL.
func NewConnectionManager(url string, options ...ConnectionOption) *ConnectionManager {
	cm := &ConnectionManager{
		url:            url,
		recoveryDelay:  10 * time.Second,
		connectTimeout: 30 * time.Second,
		logger:         slog.Default(),
		done:           make(chan struct{}),
	}

	for _, opt := range options {
		opt(cm)
	}

	return cm
}

// Connect establishes the initial connection and starts the recovery loop.
// A failure here is fatal to startup and returned, not retried.
func (cm *ConnectionManager) Connect(ctx context.Context) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.connected {
		return nil
	}

	conn, err := cm.dial(ctx)
	if err != nil {
		return &ConnectionError{
			Op:        "connect",
			URL:       SanitizeURL(cm.url),
			Err:       err,
			Timestamp: time.Now(),
		}
	}

	cm.adopt(conn)
	cm.logger.Info("connected to RabbitMQ", "url", SanitizeURL(cm.url))

	go cm.handleRecovery()

	return nil
}

// dial attempts a single connection bounded by the connect timeout.
func (cm *ConnectionManager) dial(ctx context.Context) (*amqp.Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cm.connectTimeout)
	defer cancel()

	connChan := make(chan *amqp.Connection, 1)
	errChan := make(chan error, 1)

	go func() {
		conn, err := amqp.Dial(cm.url)
		if err != nil {
			errChan <- err
			return
		}
		connChan <- conn
	}()

	select {
	case conn := <-connChan:
		return conn, nil
	case err := <-errChan:
		return nil, err
	case <-dialCtx.Done():
		return nil, ErrConnectionTimeout
	}
}

// adopt installs a live connection. Caller must hold cm.mu.
func (cm *ConnectionManager) adopt(conn *amqp.Connection) {
	cm.conn = conn
	cm.connected = true
	cm.notifyClose = make(chan *amqp.Error, 1)
	conn.NotifyClose(cm.notifyClose)
}

// Channel opens a fresh channel on the current connection. Each queue
// consumer owns its channel so QoS and failures stay per-queue.
func (cm *ConnectionManager) Channel() (*amqp.Channel, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if !cm.connected || cm.conn == nil {
		return nil, ErrNotConnected
	}
	if cm.conn.IsClosed() {
		return nil, ErrConnectionClosed
	}

	return cm.conn.Channel()
}

// IsConnected reports the connection state.
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connected && cm.conn != nil && !cm.conn.IsClosed()
}

// handleRecovery re-dials whenever the broker closes the connection, until
// Close is called. Recovery failures are logged and retried at the bounded
// interval; they never crash the process.
func (cm *ConnectionManager) handleRecovery() {
	for {
		select {
		case <-cm.done:
			return

		case amqpErr := <-cm.notifyClose:
			if amqpErr != nil {
				cm.logger.Warn("connection closed by broker", "error", amqpErr)
			}

			cm.mu.Lock()
			cm.conn = nil
			cm.connected = false
			cm.mu.Unlock()

			if !cm.redial() {
				return
			}
		}
	}
}

// redial loops until a connection is re-established or shutdown begins.
// Returns false when shutting down.
func (cm *ConnectionManager) redial() bool {
	for attempt := 1; ; attempt++ {
		select {
		case <-cm.done:
			return false
		case <-time.After(cm.recoveryDelay):
		}

		conn, err := cm.dial(context.Background())
		if err != nil {
			cm.logger.Error("reconnection failed", "attempt", attempt, "error", err)
			continue
		}

		cm.mu.Lock()
		cm.adopt(conn)
		cm.mu.Unlock()

		cm.logger.Info("reconnected to RabbitMQ", "attempts", attempt)
		return true
	}
}

// Close tears the connection down. Shutdown is best-effort: close errors are
// logged, never returned, and repeated calls are safe no-ops.
func (cm *ConnectionManager) Close() {
	cm.closeOnce.Do(func() {
		close(cm.done)

		cm.mu.Lock()
		defer cm.mu.Unlock()

		if cm.conn != nil {
			if err := cm.conn.Close(); err != nil {
				cm.logger.Warn("error closing connection", "error", err)
			}
			cm.conn = nil
		}
		cm.connected = false
	})
}
