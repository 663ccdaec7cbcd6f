// Package events publishes careers events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/polypopcareers/internal/logging"
	"github.com/muhammadolammi/polypopcareers/internal/storage"
	"github.com/streadway/amqp"
)

const (
	Exchange                  = "careers"
	RoutingApplicationReceive = "application.received"
)

// ApplicationReceived is emitted once a resume has been stored.
type ApplicationReceived struct {
	ID             uuid.UUID             `json:"id"`
	Name           string                `json:"name"`
	Phone          string                `json:"phone"`
	Experience     int                   `json:"experience"`
	Position       string                `json:"position"`
	Salary         int64                 `json:"salary"`
	ExpectedSalary int64                 `json:"expected_salary"`
	Filename       string                `json:"original_filename"`
	Resume         *storage.StoredResume `json:"resume"`
	ReceivedAt     time.Time             `json:"received_at"`
	RequestID      string                `json:"request_id,omitempty"`
}

// Publisher sends events to the careers topic exchange.
type Publisher struct {
	conn   *amqp.Connection
	logger *logging.Logger
}

// Dial connects to RabbitMQ and declares the careers exchange.
func Dial(url string, logger *logging.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("error dialling rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}
	logger.Info("connected to rabbitmq", "exchange", Exchange)
	return &Publisher{conn: conn, logger: logger}, nil
}

// PublishApplicationReceived publishes evt with persistent delivery.
func (p *Publisher) PublishApplicationReceived(ctx context.Context, evt ApplicationReceived) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := newPublishing(evt)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Publish(Exchange, RoutingApplicationReceive, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.ID, err)
	}
	p.logger.Debug("event published", "id", evt.ID, "routing_key", RoutingApplicationReceive)
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Close()
}

func newPublishing(evt ApplicationReceived) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID.String(),
		Timestamp:    evt.ReceivedAt,
		Type:         RoutingApplicationReceive,
		Body:         body,
	}, nil
}
