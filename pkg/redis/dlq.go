package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	// DefaultDLQStream is the default dead letter stream name
	DefaultDLQStream = "fern:dlq"

	// DLQMaxLen is the maximum length of the DLQ stream (oldest entries trimmed)
	DLQMaxLen = 10000

	DefaultListCount = 100
)

// DLQEntry is an indexer event whose processing failed.
type DLQEntry struct {
	// MessageID is the stream id, set when read back.
	MessageID    string       `json:"message_id,omitempty"`
	ID           string       `json:"id"`
	Event        models.Event `json:"event"`
	ErrorMessage string       `json:"error_message"`
	CreatedAt    time.Time    `json:"created_at"`
	TraceID      string       `json:"trace_id,omitempty"`
}

// DeadLetterQueue stores failed indexer events in a Redis stream.
type DeadLetterQueue struct {
	client     *Client
	streamName string
	logger     ectologger.Logger
}

// NewDeadLetterQueue creates a new dead letter queue handler
func NewDeadLetterQueue(client *Client, streamName string, logger ectologger.Logger) *DeadLetterQueue {
	if streamName == "" {
		streamName = DefaultDLQStream
	}
	return &DeadLetterQueue{
		client:     client,
		streamName: streamName,
		logger:     logger,
	}
}

// Push adds a failed event to the stream.
func (d *DeadLetterQueue) Push(ctx context.Context, event models.Event, cause error) error {
	ctx, span := tracing.StartSpan(ctx, "DLQ.Push")
	defer span.End()

	entry := newEntry(event, cause, tracing.GetTraceID(ctx))
	values, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	messageID, err := d.client.Redis().XAdd(ctx, &redis.XAddArgs{
		Stream: d.streamName,
		MaxLen: DLQMaxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		d.logger.WithContext(ctx).WithError(err).Error("Failed to add event to DLQ")
		return fmt.Errorf("failed to add to DLQ: %w", err)
	}

	d.logger.WithContext(ctx).Infof("Added event to DLQ: message=%s event=%s entity=%s", messageID, event.Name, event.EntityID)
	return nil
}

// List returns the newest entries first.
func (d *DeadLetterQueue) List(ctx context.Context, count int64) ([]DLQEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "DLQ.List")
	defer span.End()

	if count <= 0 {
		count = DefaultListCount
	}

	messages, err := d.client.Redis().XRevRangeN(ctx, d.streamName, "+", "-", count).Result()
	if err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to read DLQ: %v", err)
	}

	entries := make([]DLQEntry, 0, len(messages))
	for _, msg := range messages {
		entry, err := decodeEntry(msg)
		if err != nil {
			d.logger.WithContext(ctx).WithError(err).Warnf("Failed to decode DLQ entry: %s", msg.ID)
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Get returns the entry with the given stream id, or nil when it does not exist.
func (d *DeadLetterQueue) Get(ctx context.Context, messageID string) (*DLQEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "DLQ.Get")
	defer span.End()

	messages, err := d.client.Redis().XRange(ctx, d.streamName, messageID, messageID).Result()
	if err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to get DLQ entry: %v", err)
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return decodeEntry(messages[0])
}

// Delete removes an entry from the stream.
func (d *DeadLetterQueue) Delete(ctx context.Context, messageID string) error {
	ctx, span := tracing.StartSpan(ctx, "DLQ.Delete")
	defer span.End()

	count, err := d.client.Redis().XDel(ctx, d.streamName, messageID).Result()
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to delete DLQ entry: %v", err)
	}
	if count == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "DLQ entry not found: %s", messageID)
	}

	d.logger.WithContext(ctx).Infof("Deleted DLQ entry: %s", messageID)
	return nil
}

// Count returns the number of entries in the stream.
func (d *DeadLetterQueue) Count(ctx context.Context) (int64, error) {
	return d.client.Redis().XLen(ctx, d.streamName).Result()
}

// Replay runs the entry's event through process and removes the entry when it
// succeeds. A failed replay leaves the entry in place.
func (d *DeadLetterQueue) Replay(ctx context.Context, messageID string, process func(context.Context, models.Event) error) error {
	ctx, span := tracing.StartSpan(ctx, "DLQ.Replay")
	defer span.End()

	entry, err := d.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if entry == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "DLQ entry not found: %s", messageID)
	}

	if err := process(ctx, entry.Event); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadGateway, "replay failed: %v", err)
	}

	if err := d.Delete(ctx, messageID); err != nil {
		d.logger.WithContext(ctx).WithError(err).Warn("Failed to delete DLQ entry after replay")
	}

	d.logger.WithContext(ctx).Infof("Replayed DLQ entry: %s event=%s", messageID, entry.Event.Name)
	return nil
}

func newEntry(event models.Event, cause error, traceID string) DLQEntry {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return DLQEntry{
		ID:           uuid.New().String(),
		Event:        event,
		ErrorMessage: msg,
		CreatedAt:    time.Now().UTC(),
		TraceID:      traceID,
	}
}

func encodeEntry(entry DLQEntry) (map[string]any, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal DLQ entry: %w", err)
	}
	return map[string]any{
		"data":      string(data),
		"event":     string(entry.Event.Name),
		"entity_id": entry.Event.EntityID,
	}, nil
}

func decodeEntry(msg redis.XMessage) (*DLQEntry, error) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return nil, errors.New("invalid DLQ entry format")
	}

	var entry DLQEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DLQ entry: %w", err)
	}
	entry.MessageID = msg.ID
	return &entry, nil
}
