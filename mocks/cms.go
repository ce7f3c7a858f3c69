package mocks

import (
	"context"
	"sync"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Enrichments is an in-memory CMS keyed by entity type and id.
type Enrichments struct {
	mu      sync.Mutex
	Records map[models.EntityType]map[string]*models.Enrichment
	// Fail makes lookups for these entity ids return their error.
	Fail  map[string]error
	Calls int
}

func NewEnrichments() *Enrichments {
	return &Enrichments{
		Records: map[models.EntityType]map[string]*models.Enrichment{},
		Fail:    map[string]error{},
	}
}

func (e *Enrichments) Put(enr *models.Enrichment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Records[enr.EntityType] == nil {
		e.Records[enr.EntityType] = map[string]*models.Enrichment{}
	}
	e.Records[enr.EntityType][enr.EntityID] = enr
}

func (e *Enrichments) FailFor(entityID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Fail[entityID] = err
}

func (e *Enrichments) GetEnrichment(_ context.Context, entityType models.EntityType, entityID string) (*models.Enrichment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	if err := e.Fail[entityID]; err != nil {
		return nil, err
	}
	enr := e.Records[entityType][entityID]
	if enr == nil {
		return nil, nil
	}
	copied := *enr
	return &copied, nil
}
