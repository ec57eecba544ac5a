package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/glift-app/glift-billing/internal/models"
)

// Channel часть *amqp.Channel, нужная для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher публикует JSON-сообщения в один обменник.
type Publisher struct {
	ch       Channel
	exchange string
}

// NewPublisher создаёт издателя для обменника exchange.
func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// PublishMessage сериализует message в JSON и публикует с ключом routingKey.
func (p *Publisher) PublishMessage(ctx context.Context, routingKey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Notify публикует уведомление с ключом маршрутизации, равным его виду.
func (p *Publisher) Notify(ctx context.Context, n models.Notification) error {
	return p.PublishMessage(ctx, n.Kind, n)
}
