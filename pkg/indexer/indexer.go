// Package indexer keeps the search index current between batch syncs by rebuilding
// single entities in response to lifecycle events. Handle never reports indexing
// failures to its caller; they are logged, counted and dead-lettered.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/indexsync"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ErrUnsupportedEvent is returned by Process for event names with no handler.
var ErrUnsupportedEvent = errors.New("unsupported event")

// DeadLetters stores events whose indexing failed so they can be replayed.
type DeadLetters interface {
	Push(ctx context.Context, event models.Event, cause error) error
}

type handlerFunc func(ctx context.Context, event models.Event) error

type Indexer struct {
	commerce indexsync.Commerce
	index    indexsync.Index
	builder  *indexsync.Builder
	dlq      DeadLetters
	logger   ectologger.Logger
	handlers map[models.EventName]handlerFunc
	inflight sync.WaitGroup
}

// NewIndexer creates an indexer. dlq may be nil, in which case failures are only
// logged.
func NewIndexer(commerce indexsync.Commerce, index indexsync.Index, builder *indexsync.Builder, dlq DeadLetters, logger ectologger.Logger) *Indexer {
	i := &Indexer{
		commerce: commerce,
		index:    index,
		builder:  builder,
		dlq:      dlq,
		logger:   logger,
	}
	i.handlers = map[models.EventName]handlerFunc{
		models.EventProductCreated:  i.productChanged,
		models.EventProductUpdated:  i.productChanged,
		models.EventProductDeleted:  i.productDeleted,
		models.EventCategoryCreated: i.categoryChanged,
		models.EventCategoryUpdated: i.categoryChanged,
		models.EventCategoryDeleted: i.categoryDeleted,
		models.EventBrandCreated:    i.brandChanged,
		models.EventBrandUpdated:    i.brandChanged,
		models.EventBrandDeleted:    i.brandDeleted,

		models.EventEnrichmentPublished:   i.enrichmentPublished,
		models.EventEnrichmentUnpublished: i.enrichmentUnpublished,
	}
	return i
}

// Supports reports whether the event name has a handler.
func (i *Indexer) Supports(name models.EventName) bool {
	_, ok := i.handlers[name]
	return ok
}

// Handle processes an event and absorbs any failure.
func (i *Indexer) Handle(ctx context.Context, event models.Event) {
	ctx = appctx.SetIndexEvent(ctx, string(event.Name), event.EntityID)
	log := i.logger.WithContext(ctx).WithFields(map[string]any{
		"event":     event.Name,
		"entity_id": event.EntityID,
	})

	start := time.Now()
	err := i.Process(ctx, event)
	metrics.EventDuration.WithLabelValues(string(event.Name)).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.EventsTotal.WithLabelValues(string(event.Name), "success").Inc()
		log.Debug("Indexed event")
	case errors.Is(err, ErrUnsupportedEvent):
		metrics.EventsTotal.WithLabelValues(string(event.Name), "ignored").Inc()
		log.Warn("Ignoring unsupported event")
	default:
		metrics.EventsTotal.WithLabelValues(string(event.Name), "failed").Inc()
		log.WithError(err).Error("Failed to index event")
		i.deadLetter(ctx, event, err)
	}
}

// HandleAsync runs Handle on its own goroutine, detached from ctx cancellation.
func (i *Indexer) HandleAsync(ctx context.Context, event models.Event) {
	i.inflight.Add(1)
	go func() {
		defer i.inflight.Done()
		i.Handle(context.WithoutCancel(ctx), event)
	}()
}

// Wait blocks until every HandleAsync call has finished.
func (i *Indexer) Wait() {
	i.inflight.Wait()
}

// Process runs the handler for the event and returns its error. Used for replay,
// where the caller needs to know whether indexing succeeded.
func (i *Indexer) Process(ctx context.Context, event models.Event) error {
	ctx, span := tracing.StartSpan(ctx, "indexer.Indexer.Process",
		attribute.String("event", string(event.Name)),
		attribute.String("entity_id", event.EntityID),
	)
	defer span.End()

	handler, ok := i.handlers[event.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.Name)
	}
	if event.EntityID == "" {
		return fmt.Errorf("event %s has no entity id", event.Name)
	}

	if err := handler(ctx, event); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	return nil
}

func (i *Indexer) deadLetter(ctx context.Context, event models.Event, cause error) {
	if i.dlq == nil {
		return
	}
	if err := i.dlq.Push(ctx, event, cause); err != nil {
		i.logger.WithContext(ctx).WithError(err).Error("Failed to dead-letter event")
		return
	}
	metrics.DLQEntriesTotal.WithLabelValues(string(event.Name)).Inc()
}
