package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"TrendSentinel/internal/model"
)

// AMQPPublisher publishes signal events as JSON to a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     zerolog.Logger
}

// NewAMQPPublisher connects to the broker, retrying a few times, and declares the queue.
func NewAMQPPublisher(ctx context.Context, uri, queue string, log zerolog.Logger) (*AMQPPublisher, error) {
	log = log.With().Str("component", "amqp").Str("queue", queue).Logger()

	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("amqp connect failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to amqp after retries: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	log.Info().Msg("amqp publisher ready")
	return &AMQPPublisher{conn: conn, channel: ch, queue: queue, log: log}, nil
}

// Publish sends the event to the queue through the default exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, evt *model.SignalEvent) error {
	body, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.At,
		Type:         "signal_change",
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish signal event to %s: %w", p.queue, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func encodeEvent(evt *model.SignalEvent) ([]byte, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal signal event: %w", err)
	}
	return body, nil
}
