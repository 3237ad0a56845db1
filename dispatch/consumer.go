package dispatch

import (
	"context"
	"log/slog"
	"maps"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/travel-notify/metrics"
)

// DeliveryHandler processes one delivery and reports the acknowledgment
// decision. The error, when present, is the cause behind a retry or reject
// and is used for logging only.
type DeliveryHandler func(ctx context.Context, delivery amqp.Delivery) (Decision, error)

// ChannelSource provides broker channels. Satisfied by
// rabbitmq.ConnectionManager.
type ChannelSource interface {
	Channel() (*amqp.Channel, error)
}

// requeuePublisher republishes a delivery for a bounded retry. Satisfied by
// amqp.Channel.
type requeuePublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueConsumer runs the consumer loop for one work queue. Prefetch is one,
// so at most a single delivery is in flight and processing is strictly
// sequential per queue; separate QueueConsumers proceed independently.
//
// A nil retry policy makes every transient failure terminal: the delivery is
// rejected to the dead-letter queue on the first error. The admin queue runs
// this way.
type QueueConsumer struct {
	queue            string
	consumerTag      string
	handler          DeliveryHandler
	retry            *RetryPolicy
	resubscribeDelay time.Duration
	logger           *slog.Logger
}

// QueueConsumerOption configures the QueueConsumer.
type QueueConsumerOption func(*QueueConsumer)

// WithRetryPolicy enables bounded retry for transient failures.
func WithRetryPolicy(policy RetryPolicy) QueueConsumerOption {
	return func(c *QueueConsumer) {
		c.retry = &policy
	}
}

// WithConsumerTag sets the consumer tag registered with the broker.
func WithConsumerTag(tag string) QueueConsumerOption {
	return func(c *QueueConsumer) {
		c.consumerTag = tag
	}
}

// WithResubscribeDelay sets the pause before re-subscribing after the
// delivery stream closes.
func WithResubscribeDelay(delay time.Duration) QueueConsumerOption {
	return func(c *QueueConsumer) {
		c.resubscribeDelay = delay
	}
}

// WithConsumerLogger sets the logger.
func WithConsumerLogger(logger *slog.Logger) QueueConsumerOption {
	return func(c *QueueConsumer) {
		c.logger = logger
	}
}

// NewQueueConsumer creates a consumer for one queue.
func NewQueueConsumer(queue string, handler DeliveryHandler, options ...QueueConsumerOption) *QueueConsumer {
	c := &QueueConsumer{
		queue:            queue,
		handler:          handler,
		resubscribeDelay: 5 * time.Second,
		logger:           slog.Default(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// Run consumes until ctx is cancelled. When the delivery stream closes (for
// example because the connection was lost and recovered), it re-subscribes
// on a fresh channel after a short pause. The in-flight delivery is allowed
// to finish before the loop exits.
func (c *QueueConsumer) Run(ctx context.Context, source ChannelSource) error {
	for {
		ch, err := source.Channel()
		if err != nil {
			c.logger.Warn("channel unavailable", "queue", c.queue, "error", err)
		} else {
			if err := c.consume(ctx, ch); err != nil {
				c.logger.Warn("consume ended", "queue", c.queue, "error", err)
			}
			if closeErr := ch.Close(); closeErr != nil {
				c.logger.Debug("error closing channel", "queue", c.queue, "error", closeErr)
			}
		}

		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped", "queue", c.queue)
			return ctx.Err()
		case <-time.After(c.resubscribeDelay):
		}
	}
}

// consume subscribes on the channel and drains deliveries until the stream
// closes or ctx is cancelled.
func (c *QueueConsumer) consume(ctx context.Context, ch *amqp.Channel) error {
	// One unacknowledged message at a time per consumer.
	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		c.queue,
		c.consumerTag,
		false, // autoAck: acknowledgment is an explicit decision
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return err
	}

	c.logger.Info("consuming", "queue", c.queue, "consumerTag", c.consumerTag)

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery stream closed", "queue", c.queue)
				return nil
			}
			c.handleDelivery(ctx, ch, delivery)
		}
	}
}

// handleDelivery runs the handler and converts its decision into broker
// acknowledgments. Every delivery gets exactly one ack or nack; handler
// panics and errors are contained here and never escape the loop.
func (c *QueueConsumer) handleDelivery(ctx context.Context, pub requeuePublisher, delivery amqp.Delivery) {
	messageID := delivery.MessageId
	if messageID == "" {
		messageID = "unknown"
	}

	logger := c.logger.With("queue", c.queue, "messageId", messageID)

	decision, err := func() (d Decision, handlerErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("handler panic", "panic", r)
				d = DecisionRetry
			}
		}()
		return c.handler(ctx, delivery)
	}()

	switch decision {
	case DecisionAck:
		c.ack(delivery, logger)
		metrics.RecordConsumed(c.queue, "processed")
		logger.Info("message processed")

	case DecisionDrop:
		c.ack(delivery, logger)
		metrics.RecordConsumed(c.queue, "dropped")

	case DecisionReject:
		c.nack(delivery, false, logger)
		metrics.RecordConsumed(c.queue, "rejected")

	case DecisionRetry:
		c.applyRetry(ctx, pub, delivery, logger, err)
	}
}

// applyRetry enforces the bounded-retry contract: below the attempt cap the
// message is republished to its own queue with an incremented retry-count
// header and the original delivery is acked; at the cap it is rejected,
// which dead-letters it through the queue's DLX binding.
func (c *QueueConsumer) applyRetry(ctx context.Context, pub requeuePublisher, delivery amqp.Delivery, logger *slog.Logger, cause error) {
	if c.retry == nil {
		logger.Error("processing failed, dead-lettering", "error", cause)
		c.nack(delivery, false, logger)
		metrics.RecordConsumed(c.queue, "dead_lettered")
		return
	}

	count := ReadRetryCount(delivery.Headers)
	if c.retry.Exhausted(count) {
		logger.Error("max retries exceeded, dead-lettering",
			"error", cause,
			"retryCount", count,
			"maxAttempts", c.retry.MaxAttempts,
		)
		c.nack(delivery, false, logger)
		metrics.RecordConsumed(c.queue, "dead_lettered")
		return
	}

	next := count + 1
	logger.Warn("processing failed, retrying",
		"error", cause,
		"attempt", next,
		"maxAttempts", c.retry.MaxAttempts,
	)

	select {
	case <-time.After(c.retry.Delay):
	case <-ctx.Done():
		// Shutting down mid-backoff: hand the message back unchanged.
		c.nack(delivery, true, logger)
		return
	}

	headers := amqp.Table{}
	if delivery.Headers != nil {
		headers = maps.Clone(delivery.Headers)
	}
	headers[RetryCountHeader] = int32(next)

	err := pub.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		ContentType:  delivery.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    delivery.MessageId,
		Headers:      headers,
		Body:         delivery.Body,
	})
	if err != nil {
		// Republish failed; requeue the original so the message is not lost.
		logger.Error("failed to republish for retry", "error", err)
		c.nack(delivery, true, logger)
		return
	}

	c.ack(delivery, logger)
	metrics.RecordRetry(c.queue)
}

func (c *QueueConsumer) ack(delivery amqp.Delivery, logger *slog.Logger) {
	if err := delivery.Ack(false); err != nil {
		logger.Error("failed to ack message", "error", err)
	}
}

func (c *QueueConsumer) nack(delivery amqp.Delivery, requeue bool, logger *slog.Logger) {
	if err := delivery.Nack(false, requeue); err != nil {
		logger.Error("failed to nack message", "error", err)
	}
}
