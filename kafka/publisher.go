package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/pkg/logger"
)

// Topics names the topics the catalog service writes to
type Topics struct {
	Synced        string
	SyncRequested string
}

// Publisher wraps Kafka producer
type Publisher struct {
	producer sarama.SyncProducer
	topics   Topics
}

// NewPublisher creates a new Kafka publisher
func NewPublisher(brokers []string, topics Topics) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("synced_topic", topics.Synced).
		Msg("Kafka publisher initialized")

	return NewPublisherWithProducer(producer, topics), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer, topics Topics) *Publisher {
	if topics.Synced == "" {
		topics.Synced = TopicCatalogSynced
	}
	if topics.SyncRequested == "" {
		topics.SyncRequested = TopicSyncRequested
	}
	return &Publisher{producer: producer, topics: topics}
}

// PublishCatalogSynced publishes a catalog synced event with tracing
func (p *Publisher) PublishCatalogSynced(ctx context.Context, result *domain.SyncResult) error {
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish.catalog_synced",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topics.Synced),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("event.type", EventTypeCatalogSynced),
			attribute.String("provider.id", result.ProviderID),
		),
	)
	defer span.End()

	event := CatalogSyncedEvent{
		EventID:          uuid.NewString(),
		EventType:        EventTypeCatalogSynced,
		ProviderID:       result.ProviderID,
		ServicesUpserted: result.ServicesUpserted,
		ProductsUpserted: result.ProductsUpserted,
		ProductsRetired:  result.ProductsRetired,
		ServicesRetired:  result.ServicesRetired,
		Skipped:          len(result.Skipped),
		Timestamp:        time.Now().UTC(),
	}
	span.SetAttributes(attribute.String("event.id", event.EventID))

	eventBytes, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topics.Synced,
		Key:     sarama.StringEncoder(event.ProviderID),
		Value:   sarama.ByteEncoder(eventBytes),
		Headers: eventHeaders(ctx, EventTypeCatalogSynced, event.EventID),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		logger.Error(ctx).
			Err(err).
			Str("topic", p.topics.Synced).
			Str("provider", event.ProviderID).
			Msg("Failed to publish event")
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	span.SetStatus(codes.Ok, "Event published successfully")

	logger.Info(ctx).
		Str("event_id", event.EventID).
		Str("topic", p.topics.Synced).
		Int32("partition", partition).
		Int64("offset", offset).
		Str("provider", event.ProviderID).
		Msg("Catalog synced event published")

	return nil
}

// PublishSyncRequested asks whichever catalog instance consumes the request
// topic to sync providerID
func (p *Publisher) PublishSyncRequested(ctx context.Context, providerID string) (string, error) {
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish.sync_requested",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topics.SyncRequested),
			attribute.String("provider.id", providerID),
		),
	)
	defer span.End()

	event := SyncRequestedEvent{
		EventID:    uuid.NewString(),
		EventType:  EventTypeSyncRequested,
		ProviderID: providerID,
		Timestamp:  time.Now().UTC(),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   p.topics.SyncRequested,
		Key:     sarama.StringEncoder(providerID),
		Value:   sarama.ByteEncoder(eventBytes),
		Headers: eventHeaders(ctx, EventTypeSyncRequested, event.EventID),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		return "", fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	return event.EventID, nil
}

// eventHeaders carries the event metadata and the trace context
func eventHeaders(ctx context.Context, eventType, eventID string) []sarama.RecordHeader {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(eventType)},
		{Key: []byte("event_id"), Value: []byte(eventID)},
	}
	for key, value := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}
	return headers
}

// Close closes the Kafka producer
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
