package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventResolveEntityType(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		want    EntityType
		wantErr bool
	}{
		{name: "product", event: Event{Name: EventProductDeleted}, want: EntityTypeProduct},
		{name: "category", event: Event{Name: EventCategoryUpdated}, want: EntityTypeCategory},
		{name: "enrichment", event: Event{Name: EventEnrichmentPublished, EntityType: EntityTypeBrand}, want: EntityTypeBrand},
		{name: "enrichment without type", event: Event{Name: EventEnrichmentUnpublished}, wantErr: true},
		{name: "malformed", event: Event{Name: "productupdated"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.event.ResolveEntityType()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntityType(t *testing.T) {
	for _, et := range EntityTypes {
		assert.True(t, et.Valid())
		assert.NotEmpty(t, et.DefaultIndex())
	}
	assert.False(t, EntityType("order").Valid())
	assert.Empty(t, EntityType("order").DefaultIndex())
}

func TestIsLive(t *testing.T) {
	deleted := time.Now()

	assert.True(t, (&Product{Status: ProductStatusPublished}).IsLive())
	assert.False(t, (&Product{Status: ProductStatusPublished, DeletedAt: &deleted}).IsLive())
	assert.False(t, (*Product)(nil).IsLive())

	assert.True(t, (&Category{IsActive: true}).IsLive())
	assert.False(t, (&Category{IsActive: true, IsInternal: true}).IsLive())
	assert.False(t, (&Category{}).IsLive())

	assert.True(t, (&Brand{}).IsLive())
	assert.False(t, (&Brand{DeletedAt: &deleted}).IsLive())
}

func TestListFiltersWithDeleted(t *testing.T) {
	no := false
	assert.True(t, ListFilters{}.WithDeleted())
	assert.False(t, ListFilters{IncludeDeleted: &no}.WithDeleted())
}

func TestSyncResultHasMore(t *testing.T) {
	assert.True(t, (&SyncResult{Limit: 50, Processed: 50}).HasMore())
	assert.False(t, (&SyncResult{Limit: 50, Processed: 12}).HasMore())
	assert.False(t, (&SyncResult{}).HasMore())
	assert.False(t, (*SyncResult)(nil).HasMore())
}

func TestEnrichmentIsPublished(t *testing.T) {
	assert.True(t, (&Enrichment{Status: EnrichmentStatusPublished}).IsPublished())
	assert.False(t, (&Enrichment{Status: "draft"}).IsPublished())
	assert.False(t, (*Enrichment)(nil).IsPublished())
}
