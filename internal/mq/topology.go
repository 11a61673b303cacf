package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

const (
	ExchangeRuns Exchange = "conduit.runs"
	ExchangeDLQ  Exchange = "conduit.dlq"
)

const (
	QueueRunsRequested Queue = "runs.requested"
	QueueRunsCompleted Queue = "runs.completed"
	QueueDLQRuns       Queue = "dlq.runs"
)

const (
	RoutingKeyRequested RoutingKey = "requested"
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyDLQRuns   RoutingKey = "runs"
)

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
	args       amqp.Table
}

// bindings — вся топология: очередь, её ключ и обменник.
// runs.requested отправляет отвергнутые сообщения в dlq.runs.
func bindings() []binding {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQRuns),
	}

	return []binding{
		{QueueRunsRequested, RoutingKeyRequested, ExchangeRuns, dlqArgs},
		{QueueRunsCompleted, RoutingKeyCompleted, ExchangeRuns, nil},
		{QueueDLQRuns, RoutingKeyDLQRuns, ExchangeDLQ, nil},
	}
}

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeRuns, ExchangeDLQ} {
			if err := ch.ExchangeDeclare(string(ex), "direct", true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, b := range bindings() {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, b.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}
