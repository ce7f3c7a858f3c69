package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

var testLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Topic: "t", Offset: 1, Value: []byte(`{"name":"product.updated","entity_id":"p1"}`)},
		{Topic: "t", Offset: 2, Value: []byte(`{"name":"product.updated","entity_id":"fail"}`)},
		{Topic: "t", Offset: 3, Value: []byte(`{"name":"brand.deleted","entity_id":"b1"}`)},
	}}

	var mu sync.Mutex
	var seen []string
	consumer := newConsumer(reader, testLogger, func(ctx context.Context, msg *IncomingMessage) error {
		event, err := msg.ParseEvent()
		assert.NoError(t, err)
		mu.Lock()
		seen = append(seen, event.EntityID)
		mu.Unlock()
		if event.EntityID == "fail" {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, consumer.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, consumer.Stop())

	assert.Equal(t, []int64{1, 3}, reader.commits())
	mu.Lock()
	assert.Equal(t, []string{"p1", "fail", "b1"}, seen)
	mu.Unlock()
	assert.True(t, reader.closed)
}

func TestParseEvent_NativeShape(t *testing.T) {
	msg := &IncomingMessage{
		Topic:     "commerce.entity-events",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Value:     []byte(`{"name":"product.deleted","entity_id":"prod_1","category_ids":["c1"],"brand_id":"b1"}`),
	}

	event, err := msg.ParseEvent()
	require.NoError(t, err)
	assert.Equal(t, models.EventProductDeleted, event.Name)
	assert.Equal(t, "prod_1", event.EntityID)
	assert.Equal(t, []string{"c1"}, event.CategoryIDs)
	require.NotNil(t, event.BrandID)
	assert.Equal(t, "b1", *event.BrandID)
	assert.Equal(t, msg.Timestamp, event.OccurredAt)
	assert.Equal(t, "kafka:commerce.entity-events", event.Source)
}

func TestParseEvent_CommerceEnvelope(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{"event":"Category.Updated","data":{"id":"pcat_2","parent_category_id":"pcat_1"},"metadata":{"source":"medusa","timestamp":"2024-03-01T12:00:00Z"}}`),
	}

	event, err := msg.ParseEvent()
	require.NoError(t, err)
	assert.Equal(t, models.EventCategoryUpdated, event.Name)
	assert.Equal(t, "pcat_2", event.EntityID)
	require.NotNil(t, event.ParentCategoryID)
	assert.Equal(t, "pcat_1", *event.ParentCategoryID)
	assert.Equal(t, "medusa", event.Source)
	assert.Equal(t, 12, event.OccurredAt.Hour())
}

func TestParseEvent_HeaderAndKeyFallback(t *testing.T) {
	msg := &IncomingMessage{
		Key:     "brand_9",
		Headers: map[string]string{HeaderEventName: "brand.updated"},
		Value:   []byte(`{}`),
	}

	event, err := msg.ParseEvent()
	require.NoError(t, err)
	assert.Equal(t, models.EventBrandUpdated, event.Name)
	assert.Equal(t, "brand_9", event.EntityID)
}

func TestParseEvent_Invalid(t *testing.T) {
	for _, value := range []string{`not json`, `{}`, `{"name":"product.updated"}`} {
		_, err := (&IncomingMessage{Value: []byte(value)}).ParseEvent()
		assert.Error(t, err, value)
	}
}

func TestProducer_PublishEvent(t *testing.T) {
	writer := &fakeWriter{}
	producer := newProducer(writer, "cms.enrichment-events", testLogger)

	err := producer.PublishEvent(context.Background(), models.Event{
		Name:       models.EventEnrichmentPublished,
		EntityType: models.EntityTypeBrand,
		EntityID:   "brand_1",
		Source:     "cms",
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "brand_1", string(msg.Key))

	incoming := newIncomingMessage(msg)
	assert.Equal(t, "enrichment.published", incoming.Headers[HeaderEventName])
	assert.Equal(t, "brand", incoming.Headers[HeaderEntityType])

	event, err := incoming.ParseEvent()
	require.NoError(t, err)
	assert.Equal(t, models.EventEnrichmentPublished, event.Name)
	assert.Equal(t, models.EntityTypeBrand, event.EntityType)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestProducer_WriteError(t *testing.T) {
	producer := newProducer(&fakeWriter{err: errors.New("broker down")}, "t", testLogger)
	err := producer.PublishEvent(context.Background(), models.Event{Name: models.EventBrandUpdated, EntityID: "b"})
	assert.Error(t, err)
}
