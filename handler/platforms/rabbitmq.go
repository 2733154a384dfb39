package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/handler"
)

// RabbitMQAdapter runs the worker as a queue consumer. Each message is a
// DispatchEvent; a failed transfer with a retryable error is nacked back
// onto the queue, anything else is acked.
type RabbitMQAdapter struct {
	handler *handler.Handler
	config  *config.RabbitMQConfig
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQAdapter creates a new RabbitMQ adapter
func NewRabbitMQAdapter(h *handler.Handler, cfg *config.RabbitMQConfig) *RabbitMQAdapter {
	return &RabbitMQAdapter{
		handler: h,
		config:  cfg,
	}
}

// Start connects, declares the queue, and blocks consuming messages until
// the connection closes.
func (a *RabbitMQAdapter) Start() error {
	conn, err := amqp.Dial(a.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	a.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	a.channel = ch

	if a.config.PrefetchCount > 0 {
		if err := ch.Qos(a.config.PrefetchCount, 0, false); err != nil {
			a.Close()
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	// Declare queue (idempotent - creates if doesn't exist)
	q, err := ch.QueueDeclare(
		a.config.Queue, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		a.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer tag (auto-generated)
		false,  // auto-ack (we ack manually)
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		a.Close()
		return fmt.Errorf("failed to consume: %w", err)
	}

	for msg := range msgs {
		a.processMessage(msg)
	}

	return nil
}

// Close shuts down the channel and connection.
func (a *RabbitMQAdapter) Close() error {
	if a.channel != nil {
		a.channel.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}

// processMessage handles one delivery, acking or nacking by outcome.
func (a *RabbitMQAdapter) processMessage(msg amqp.Delivery) {
	ctx := context.Background()
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	request := a.buildRequest(msg)

	response, err := a.handler.Handle(ctx, request)
	if err != nil {
		// Handler-level errors are requeued once; redelivered messages
		// that fail again are dropped to avoid a poison-message loop.
		msg.Nack(false, !msg.Redelivered)
		return
	}

	if !response.Success && response.Error != nil && response.Error.Retryable && !msg.Redelivered {
		msg.Nack(false, true)
		return
	}

	msg.Ack(false)
}

// buildRequest converts an AMQP delivery to a handler.Request
func (a *RabbitMQAdapter) buildRequest(msg amqp.Delivery) handler.Request {
	metadata := map[string]string{
		"amqp_exchange":    msg.Exchange,
		"amqp_routing_key": msg.RoutingKey,
	}

	requestType := "download_file"
	payload := json.RawMessage(msg.Body)

	var dispatch struct {
		EventType     string          `json:"event_type"`
		ClientPayload json.RawMessage `json:"client_payload"`
	}
	if err := json.Unmarshal(msg.Body, &dispatch); err == nil && dispatch.EventType != "" {
		requestType = dispatch.EventType
		if len(dispatch.ClientPayload) > 0 {
			payload = dispatch.ClientPayload
		}
	}

	requestID := msg.MessageId
	if requestID == "" {
		requestID = msg.CorrelationId
	}

	return handler.Request{
		ID:        requestID,
		Source:    "rabbitmq",
		Type:      requestType,
		Payload:   payload,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}
