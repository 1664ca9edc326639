// Package events connects the batch pipeline to the message brokers: upload
// triggers come in over Kafka or RabbitMQ, localization results go out on
// Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"course-localization-service/internal/models"
	"course-localization-service/internal/observability/metrics"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes localization events and run summaries to separate
// Kafka topics. It implements pipeline.Notifier.
type Publisher struct {
	writerLocalization messageWriter
	writerSummary      messageWriter
	principal          string
	topicLocalization  string
	topicSummary       string
	enabled            bool
	metrics            *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers           []string
	TopicLocalization string
	TopicSummary      string
	Principal         string
	Enabled           bool
}

// New creates a Kafka publisher. A nil or disabled config yields a
// publisher that only logs.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m}
	}

	p := &Publisher{
		principal:         cfg.Principal,
		topicLocalization: cfg.TopicLocalization,
		topicSummary:      cfg.TopicSummary,
		metrics:           m,
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p.writerLocalization = newWriter(cfg.Brokers, cfg.TopicLocalization, transport)
	p.writerSummary = newWriter(cfg.Brokers, cfg.TopicSummary, transport)
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicLocalization", cfg.TopicLocalization).
		Str("topicSummary", cfg.TopicSummary).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// PublishLocalization publishes the outcome of one language. Events for the
// same course share a partition.
func (p *Publisher) PublishLocalization(ctx context.Context, ev models.LocalizationEvent) error {
	return p.publish(ctx, p.writerLocalization, p.topicLocalization, ev.EventType, ev.CourseID, ev)
}

// PublishSummary publishes the summary of a batch run.
func (p *Publisher) PublishSummary(ctx context.Context, s models.RunSummary) error {
	return p.publish(ctx, p.writerSummary, p.topicSummary, s.EventType, s.CourseID, s)
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerLocalization != nil {
		if e := p.writerLocalization.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing localization writer")
			err = e
		}
	}
	if p.writerSummary != nil {
		if e := p.writerSummary.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing summary writer")
			err = e
		}
	}
	return err
}
