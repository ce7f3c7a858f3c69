package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// SyncFailure records one entity that could not be built or indexed on a page.
type SyncFailure struct {
	EntityID string `json:"entity_id"`
	Error    string `json:"error"`
}

// SyncResult is the outcome of one sync page. Processed is the number of canonical
// rows read and is the caller's end-of-data signal.
type SyncResult struct {
	EntityType EntityType    `json:"entity_type"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
	Processed  int           `json:"processed"`
	Indexed    int           `json:"indexed"`
	Deleted    int           `json:"deleted"`
	Failed     int           `json:"failed"`
	Failures   []SyncFailure `json:"failures,omitempty"`
}

// HasMore reports whether the caller should request the next page.
func (r *SyncResult) HasMore() bool {
	return r != nil && r.Limit > 0 && r.Processed >= r.Limit
}

// SyncRequest is the body accepted by the sync endpoints.
type SyncRequest struct {
	Filters ListFilters `json:"filters"`
	Limit   int         `json:"limit" validate:"gte=0"`
	Offset  int         `json:"offset" validate:"gte=0"`
}

// SyncRun is one row of the sync_runs ledger.
type SyncRun struct {
	ID          string                        `json:"id" db:"id"`
	EntityType  EntityType                    `json:"entity_type" db:"entity_type"`
	Filters     database.JSONB[ListFilters]   `json:"filters" db:"filters"`
	Limit       int                           `json:"limit" db:"page_limit"`
	Offset      int                           `json:"offset" db:"page_offset"`
	Processed   int                           `json:"processed" db:"processed"`
	Indexed     int                           `json:"indexed" db:"indexed"`
	Deleted     int                           `json:"deleted" db:"deleted"`
	Failed      int                           `json:"failed" db:"failed"`
	Failures    database.JSONB[[]SyncFailure] `json:"failures" db:"failures"`
	Error       *string                       `json:"error,omitempty" db:"error"`
	TriggeredBy *string                       `json:"triggered_by,omitempty" db:"triggered_by"`
	StartedAt   time.Time                     `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time                    `json:"finished_at,omitempty" db:"finished_at"`
}
