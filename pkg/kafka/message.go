package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

func newIncomingMessage(msg kafka.Message) *IncomingMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &IncomingMessage{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Topic:     msg.Topic,
	}
}

// TraceContext returns ctx carrying the producer's trace context from the headers.
func (m *IncomingMessage) TraceContext(ctx context.Context) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(m.Headers))
}

// commerceEnvelope is the commerce event bus shape: {"event": name, "data": {...}}.
type commerceEnvelope struct {
	Event    string `json:"event"`
	Metadata struct {
		Source    string     `json:"source"`
		Timestamp *time.Time `json:"timestamp"`
	} `json:"metadata"`
	Data struct {
		ID               string   `json:"id"`
		CategoryIDs      []string `json:"category_ids"`
		BrandID          *string  `json:"brand_id"`
		ParentCategoryID *string  `json:"parent_category_id"`
	} `json:"data"`
}

// ParseEvent decodes the message value as an indexer event. Both fern's own event
// shape and the commerce event bus envelope are accepted.
func (m *IncomingMessage) ParseEvent() (models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return event, fmt.Errorf("invalid event payload: %w", err)
	}

	if event.Name == "" {
		var env commerceEnvelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			return event, fmt.Errorf("invalid event payload: %w", err)
		}
		event = models.Event{
			Name:             models.EventName(strings.ToLower(env.Event)),
			EntityID:         env.Data.ID,
			CategoryIDs:      env.Data.CategoryIDs,
			BrandID:          env.Data.BrandID,
			ParentCategoryID: env.Data.ParentCategoryID,
			Source:           env.Metadata.Source,
		}
		if env.Metadata.Timestamp != nil {
			event.OccurredAt = *env.Metadata.Timestamp
		}
	}

	if event.Name == "" {
		event.Name = models.EventName(m.Headers[HeaderEventName])
	}
	if event.EntityID == "" {
		event.EntityID = m.Key
	}
	if event.Name == "" || event.EntityID == "" {
		return event, fmt.Errorf("event is missing name or entity id")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.Timestamp
	}
	if event.Source == "" {
		event.Source = "kafka:" + m.Topic
	}
	return event, nil
}
