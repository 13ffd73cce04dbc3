package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName  = "payments"
	QueueName     = "payment_events"
	RoutingKey    = "payment.status_changed"
	PrefetchCount = 1 // Process one message at a time per worker
)

// RabbitMQClient is a secondary adapter that implements PaymentMessaging output port
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQClient creates a new RabbitMQ client (returns interface for ports)
func NewRabbitMQClient(amqpURL string) (output.PaymentMessaging, error) {
	return NewRabbitMQClientConcrete(amqpURL)
}

// NewRabbitMQClientConcrete creates a new RabbitMQ client (returns concrete type for workers)
func NewRabbitMQClientConcrete(amqpURL string) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: channel,
	}, nil
}

func declareTopology(channel *amqp.Channel) error {
	err := channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(QueueName, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// PublishPaymentEvent publishes a persisted payment change
func (c *RabbitMQClient) PublishPaymentEvent(ctx context.Context, event core.PaymentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = c.channel.PublishWithContext(
		ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID.String(),
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Printf("Published %s event for payment: %s", event.Source, event.PaymentReference)
	return nil
}

// ConsumePaymentEvents starts consuming payment events
func (c *RabbitMQClient) ConsumePaymentEvents(handler func(core.PaymentEvent) error) error {
	err := c.channel.Qos(
		PrefetchCount,
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		QueueName,
		"",    // consumer tag
		false, // auto-ack (we'll manually ack after processing)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Println("Started consuming payment events...")

	go func() {
		for msg := range msgs {
			handleDelivery(msg, handler)
		}
	}()

	return nil
}

// acknowledger is the subset of amqp.Delivery used to settle a message
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(msg amqp.Delivery, handler func(core.PaymentEvent) error) {
	settle(&msg, msg.Body, handler)
}

// settle decodes body, runs handler and acknowledges accordingly. Malformed
// and already-recorded events are dropped; anything else is requeued.
func settle(ack acknowledger, body []byte, handler func(core.PaymentEvent) error) {
	var event core.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Error unmarshaling payment event: %v", err)
		ack.Nack(false, false)
		return
	}

	if err := handler(event); err != nil {
		log.Printf("Error recording event %s for payment %s: %v", event.EventID, event.PaymentReference, err)
		if isTerminalError(err) {
			ack.Ack(false)
		} else {
			ack.Nack(false, true)
		}
		return
	}

	ack.Ack(false)
}

// Close closes the RabbitMQ connection
func (c *RabbitMQClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// isTerminalError reports errors that retrying cannot fix
func isTerminalError(err error) bool {
	return errors.Is(err, core.ErrDuplicateEvent) || errors.Is(err, core.ErrInvalidInput)
}
