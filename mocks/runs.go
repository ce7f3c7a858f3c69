package mocks

import (
	"context"
	"sync"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Runs records sync runs in memory.
type Runs struct {
	mu   sync.Mutex
	Runs []models.SyncRun
	Err  error
}

func (r *Runs) Record(_ context.Context, run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Runs = append(r.Runs, *run)
	return nil
}

func (r *Runs) List(_ context.Context, entityType models.EntityType, limit int) ([]models.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SyncRun
	for i := len(r.Runs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if entityType == "" || r.Runs[i].EntityType == entityType {
			out = append(out, r.Runs[i])
		}
	}
	return out, nil
}
