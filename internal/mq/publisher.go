package mq

import (
	"context"
	"fmt"
	"log/slog"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultSource — источник событий по умолчанию.
const DefaultSource = "/conduit"

// Publisher публикует CloudEvents в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
	source string
}

// NewPublisher создаёт Publisher. source попадает в атрибут "source"
// каждого события, например "/conduit/worker".
func NewPublisher(conn *Connection, logger *slog.Logger, source string) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if source == "" {
		source = DefaultSource
	}
	return &Publisher{conn: conn, logger: logger, source: source}
}

// Publish публикует событие в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, e cloudevents.Event) error {
	body, err := EncodeEvent(e)
	if err != nil {
		return err
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  cloudevents.ApplicationCloudEventsJSON,
				DeliveryMode: amqp.Persistent,
				MessageId:    e.ID(),
				Type:         e.Type(),
				Timestamp:    e.Time(),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published event",
			"exchange", exchange,
			"routing_key", routingKey,
			"event_id", e.ID(),
			"type", e.Type(),
			"subject", e.Subject(),
		)
		return nil
	})
}

// PublishRunRequested публикует событие о run, ожидающем выполнения.
// Потребитель: Worker.
func (p *Publisher) PublishRunRequested(ctx context.Context, payload RunRequestedPayload) error {
	e, err := NewEvent(p.source, EventRunRequested, payload.RunID.String(), payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeRuns, RoutingKeyRequested, e)
}

// PublishRunCompleted публикует событие о завершённом run.
func (p *Publisher) PublishRunCompleted(ctx context.Context, payload RunCompletedPayload) error {
	e, err := NewEvent(p.source, EventRunCompleted, payload.RunID.String(), payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeRuns, RoutingKeyCompleted, e)
}
