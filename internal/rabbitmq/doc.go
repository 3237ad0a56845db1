// Package rabbitmq owns the broker side of the notification pipeline: the
// connection lifecycle, channel creation, and the queue/exchange topology the
// consumers depend on. Nothing in here knows about message semantics.
package rabbitmq
