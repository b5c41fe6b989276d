package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// FailureAlert is published when the retry worker gives up on a lead.
// The mail worker turns it into an operator email.
type FailureAlert struct {
	LeadID       string    `json:"lead_id"`
	Email        string    `json:"email"`
	RetryCount   int       `json:"retry_count"`
	LastResponse string    `json:"last_response"`
	FailedAt     time.Time `json:"failed_at"`
}

type AlertProducerInterface interface {
	PublishPermanentFailure(ctx context.Context, alert FailureAlert) error
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{Conn: conn, Ch: ch}
}

func (p *RabbitMQProducer) PublishPermanentFailure(ctx context.Context, alert FailureAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}
