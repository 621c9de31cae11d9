package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"stockflow/internal/events"
	"stockflow/pkg/logger"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Publisher writes stock events to a Kafka topic
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher creates a new Kafka publisher
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Kafka publisher initialized")

	return NewPublisherWithProducer(producer, topic), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Notify publishes event keyed by product id so movements of one product stay ordered.
func (p *Publisher) Notify(ctx context.Context, event events.StockEvent) error {
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish.stock_event",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("event.action", string(event.Action)),
			attribute.String("product.id", event.ProductID.String()),
		),
	)
	defer span.End()

	body, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Inject trace context into Kafka headers
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("event_action"), Value: []byte(event.Action)},
		{Key: []byte("event_id"), Value: []byte(event.EventID)},
	}
	for key, value := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(event.ProductID.String()),
		Value:   sarama.ByteEncoder(body),
		Headers: headers,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)

	logger.Debug(ctx).
		Str("event_id", event.EventID).
		Str("topic", p.topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Stock event published")

	return nil
}

// Close closes the Kafka producer
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
