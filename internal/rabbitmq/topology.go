package rabbitmq

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeDeclaration defines an exchange to be declared.
type ExchangeDeclaration struct {
	Name    string
	Type    string
	Durable bool
}

// QueueDeclaration defines a queue to be declared.
type QueueDeclaration struct {
	Name      string
	Durable   bool
	Arguments amqp.Table
}

// Binding defines a queue-to-exchange binding.
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

// Topology is the complete set of declarations a consumer depends on.
// Declarations are idempotent: redeclaring with identical arguments is a
// no-op on the broker, while conflicting arguments fail the declaration.
type Topology struct {
	Exchanges []ExchangeDeclaration
	Queues    []QueueDeclaration
	Bindings  []Binding
}

// Declare applies the topology on the given channel, exchanges first, then
// queues, then bindings. The first failure aborts and is returned.
func (t Topology) Declare(ch *amqp.Channel) error {
	for _, ex := range t.Exchanges {
		err := ch.ExchangeDeclare(
			ex.Name,
			ex.Type,
			ex.Durable,
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return &TopologyError{Component: "exchange", Name: ex.Name, Err: err}
		}
	}

	for _, q := range t.Queues {
		_, err := ch.QueueDeclare(
			q.Name,
			q.Durable,
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			q.Arguments,
		)
		if err != nil {
			return &TopologyError{Component: "queue", Name: q.Name, Err: err}
		}
	}

	for _, b := range t.Bindings {
		err := ch.QueueBind(b.Queue, b.RoutingKey, b.Exchange, false, nil)
		if err != nil {
			return &TopologyError{Component: "binding", Name: b.Queue, Err: err}
		}
	}

	return nil
}

// QueueSpec names one work queue and its dead-letter queue.
type QueueSpec struct {
	Name string
	DLQ  string
}

// NotificationTopology builds the notification pipeline topology: a shared
// direct dead-letter exchange, and for each work queue a durable DLQ bound to
// that exchange plus the durable work queue itself with its dead-letter
// target pointed at the exchange. The routing key is the work queue's own
// name in both directions, so a nack-without-requeue lands in the matching
// DLQ.
func NotificationTopology(deadLetterExchange string, queues ...QueueSpec) Topology {
	t := Topology{
		Exchanges: []ExchangeDeclaration{
			{Name: deadLetterExchange, Type: "direct", Durable: true},
		},
	}

	for _, q := range queues {
		t.Queues = append(t.Queues,
			QueueDeclaration{
				Name:    q.DLQ,
				Durable: true,
			},
			QueueDeclaration{
				Name:    q.Name,
				Durable: true,
				Arguments: amqp.Table{
					"x-dead-letter-exchange":    deadLetterExchange,
					"x-dead-letter-routing-key": q.Name,
				},
			},
		)
		t.Bindings = append(t.Bindings, Binding{
			Queue:      q.DLQ,
			Exchange:   deadLetterExchange,
			RoutingKey: q.Name,
		})
	}

	return t
}
