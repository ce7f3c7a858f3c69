package mocks

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Index is an in-memory search index holding the raw bytes of every document.
type Index struct {
	mu        sync.Mutex
	Documents map[models.EntityType]map[string]json.RawMessage

	AddErr    error
	DeleteErr error

	AddCalls    int
	DeleteCalls int
}

func NewIndex() *Index {
	return &Index{Documents: map[models.EntityType]map[string]json.RawMessage{}}
}

func (i *Index) AddDocuments(_ context.Context, entityType models.EntityType, documents []json.RawMessage) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.AddCalls++
	if i.AddErr != nil {
		return i.AddErr
	}
	if i.Documents[entityType] == nil {
		i.Documents[entityType] = map[string]json.RawMessage{}
	}
	for _, doc := range documents {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(doc, &head); err != nil {
			return err
		}
		i.Documents[entityType][head.ID] = append(json.RawMessage(nil), doc...)
	}
	return nil
}

func (i *Index) DeleteDocuments(_ context.Context, entityType models.EntityType, ids []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.DeleteCalls++
	if i.DeleteErr != nil {
		return i.DeleteErr
	}
	for _, id := range ids {
		delete(i.Documents[entityType], id)
	}
	return nil
}

// Get decodes one document into dest and reports whether it exists.
func (i *Index) Get(entityType models.EntityType, id string, dest any) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	raw, ok := i.Documents[entityType][id]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (i *Index) Has(entityType models.EntityType, id string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.Documents[entityType][id]
	return ok
}

func (i *Index) Count(entityType models.EntityType) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.Documents[entityType])
}

// Snapshot returns the documents of one type concatenated in id order.
func (i *Index) Snapshot(entityType models.EntityType) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	docs := i.Documents[entityType]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []byte
	for _, id := range ids {
		out = append(out, docs[id]...)
		out = append(out, '\n')
	}
	return string(out)
}
