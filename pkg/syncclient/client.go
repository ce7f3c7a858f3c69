// Package syncclient drives the sync endpoints page by page until the source is
// exhausted.
package syncclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/models"
)

const DefaultMaxPages = 10000

type Client struct {
	http   *httpclient.Client
	logger ectologger.Logger
}

func NewClient(http *httpclient.Client, logger ectologger.Logger) *Client {
	return &Client{
		http:   http,
		logger: logger,
	}
}

type Options struct {
	Filters     models.ListFilters
	Limit       int
	StartOffset int
	// MaxPages stops a runaway loop against a source that never shrinks.
	MaxPages int
	OnPage   func(result models.SyncResult)
}

// Summary totals every page of a SyncAll call.
type Summary struct {
	EntityType models.EntityType    `json:"entity_type"`
	Pages      int                  `json:"pages"`
	Processed  int                  `json:"processed"`
	Indexed    int                  `json:"indexed"`
	Deleted    int                  `json:"deleted"`
	Failed     int                  `json:"failed"`
	Failures   []models.SyncFailure `json:"failures,omitempty"`
	NextOffset int                  `json:"next_offset"`
}

// SyncPage requests one page.
func (c *Client) SyncPage(ctx context.Context, entityType models.EntityType, req models.SyncRequest) (*models.SyncResult, error) {
	if !entityType.Valid() {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}

	var result models.SyncResult
	if err := c.http.DoJSON(ctx, http.MethodPost, SyncPath(entityType), nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SyncAll requests pages, advancing the offset by the effective limit, until a page
// processes fewer rows than the limit. On error the summary so far is returned with
// NextOffset set to the page that failed, so the caller can resume.
func (c *Client) SyncAll(ctx context.Context, entityType models.EntityType, opts Options) (*Summary, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	summary := &Summary{EntityType: entityType, NextOffset: opts.StartOffset}
	offset := opts.StartOffset

	for summary.Pages < maxPages {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := c.SyncPage(ctx, entityType, models.SyncRequest{
			Filters: opts.Filters,
			Limit:   opts.Limit,
			Offset:  offset,
		})
		if err != nil {
			return summary, fmt.Errorf("sync %s at offset %d: %w", entityType, offset, err)
		}

		summary.Pages++
		summary.Processed += result.Processed
		summary.Indexed += result.Indexed
		summary.Deleted += result.Deleted
		summary.Failed += result.Failed
		summary.Failures = append(summary.Failures, result.Failures...)

		c.logger.WithContext(ctx).WithFields(map[string]any{
			"entity_type": entityType,
			"offset":      offset,
			"processed":   result.Processed,
			"indexed":     result.Indexed,
			"deleted":     result.Deleted,
			"failed":      result.Failed,
		}).Info("Synced page")

		if opts.OnPage != nil {
			opts.OnPage(*result)
		}

		offset += result.Limit
		summary.NextOffset = offset
		if !result.HasMore() {
			return summary, nil
		}
	}

	return summary, fmt.Errorf("sync %s stopped after %d pages", entityType, maxPages)
}

// ListRuns returns recent ledger rows.
func (c *Client) ListRuns(ctx context.Context, entityType models.EntityType, limit int) ([]models.SyncRun, error) {
	query := url.Values{}
	if entityType != "" {
		query.Set("entity_type", string(entityType))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var runs []models.SyncRun
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/v1/sync-runs", query, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// SyncPath is the sync endpoint for an entity type, e.g. /api/v1/sync-products.
func SyncPath(entityType models.EntityType) string {
	return "/api/v1/sync-" + entityType.DefaultIndex()
}
