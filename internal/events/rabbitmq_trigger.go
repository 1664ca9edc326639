package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// delivery is the subset of amqp.Delivery the trigger needs.
type delivery interface {
	Body() []byte
	Ack() error
	Reject() error
	Requeue() error
}

type amqpDelivery struct{ d amqp.Delivery }

func (a amqpDelivery) Body() []byte   { return a.d.Body }
func (a amqpDelivery) Ack() error     { return a.d.Ack(false) }
func (a amqpDelivery) Reject() error  { return a.d.Reject(false) }
func (a amqpDelivery) Requeue() error { return a.d.Nack(false, true) }

// RabbitMQTrigger consumes upload events from a durable RabbitMQ queue.
type RabbitMQTrigger struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	queue      string
	dispatcher *Dispatcher
}

// NewRabbitMQTrigger connects to url and declares queue.
func NewRabbitMQTrigger(url, queue string, dispatcher *Dispatcher) (*RabbitMQTrigger, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	// A delivery stays unacknowledged while the dispatcher waits for a run
	// slot, so the broker holds the rest of a burst.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &RabbitMQTrigger{conn: conn, channel: ch, queue: queue, dispatcher: dispatcher}, nil
}

// Run consumes deliveries until ctx is cancelled or the channel closes.
func (t *RabbitMQTrigger) Run(ctx context.Context) error {
	deliveries, err := t.channel.Consume(t.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", t.queue, err)
	}
	log.Info().Str("queue", t.queue).Msg("RabbitMQ upload trigger started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq channel closed")
			}
			t.handle(ctx, amqpDelivery{d})
		}
	}
}

// handle acknowledges accepted triggers and rejects invalid ones without
// requeueing them. A trigger still waiting for a run slot at shutdown is
// requeued.
func (t *RabbitMQTrigger) handle(ctx context.Context, d delivery) {
	err := t.dispatcher.Dispatch(ctx, "rabbitmq", d.Body())
	switch {
	case err == nil:
		if err := d.Ack(); err != nil {
			log.Error().Err(err).Msg("Failed to ack message")
		}
	case ctx.Err() != nil:
		log.Debug().Str("queue", t.queue).Msg("Requeueing trigger message on shutdown")
		if err := d.Requeue(); err != nil {
			log.Error().Err(err).Msg("Failed to requeue message")
		}
	default:
		log.Warn().Err(err).Str("queue", t.queue).Msg("Rejecting invalid trigger message")
		if err := d.Reject(); err != nil {
			log.Error().Err(err).Msg("Failed to reject message")
		}
	}
}

// Close closes the channel and connection.
func (t *RabbitMQTrigger) Close() error {
	var err error
	if t.channel != nil {
		err = t.channel.Close()
	}
	if t.conn != nil {
		if e := t.conn.Close(); e != nil {
			err = e
		}
	}
	return err
}
