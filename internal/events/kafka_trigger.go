package events

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// messageReader is the subset of *kafka.Reader the trigger consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTriggerConfig configures the Kafka upload trigger.
type KafkaTriggerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaTrigger consumes object-finalize notifications from a Kafka topic.
type KafkaTrigger struct {
	reader     messageReader
	dispatcher *Dispatcher
	topic      string
	retryDelay time.Duration
}

// NewKafkaTrigger creates a consumer-group reader on cfg.Topic.
func NewKafkaTrigger(cfg KafkaTriggerConfig, dispatcher *Dispatcher) *KafkaTrigger {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newKafkaTrigger(reader, cfg.Topic, dispatcher)
}

func newKafkaTrigger(reader messageReader, topic string, dispatcher *Dispatcher) *KafkaTrigger {
	return &KafkaTrigger{
		reader:     reader,
		dispatcher: dispatcher,
		topic:      topic,
		retryDelay: time.Second,
	}
}

// Run reads trigger messages until ctx is cancelled. A message is committed
// once its run has started or it was found invalid; invalid payloads are
// logged and skipped. A message still waiting for a run slot at shutdown
// stays uncommitted and is redelivered to the group.
func (t *KafkaTrigger) Run(ctx context.Context) error {
	log.Info().Str("topic", t.topic).Msg("Kafka upload trigger started")
	for {
		msg, err := t.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Str("topic", t.topic).Msg("Error reading trigger message")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(t.retryDelay):
			}
			continue
		}

		if err := t.dispatcher.Dispatch(ctx, "kafka", msg.Value); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().
				Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Ignoring invalid trigger message")
		}
		if err := t.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit trigger message")
		}
	}
}

// Close closes the reader.
func (t *KafkaTrigger) Close() error {
	return t.reader.Close()
}
