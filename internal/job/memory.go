package job

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access and clones records on
// every read and write boundary so callers never share mutable state.
// Suitable for development and testing; use PostgresRepository in production.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]*Record
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs: make(map[string]*Record),
	}
}

// Create persists a new record.
func (r *MemoryRepository) Create(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[rec.ID] = rec.Clone()
	return nil
}

// FindByID retrieves a record by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Update applies fn to the stored record while holding the repository lock,
// which serializes all read-modify-write cycles on the same id.
func (r *MemoryRepository) Update(_ context.Context, id string, fn func(*Record) error) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := rec.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.jobs[id] = working
	return working.Clone(), nil
}

// List returns records matching the filter, newest first.
func (r *MemoryRepository) List(_ context.Context, f Filter) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*Record, 0, len(r.jobs))
	for _, rec := range r.jobs {
		if f.OwnerID != "" && rec.OwnerID != f.OwnerID {
			continue
		}
		if f.WorkspaceID != "" && rec.WorkspaceID != f.WorkspaceID {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		matched = append(matched, rec)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*Record{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]*Record, len(matched))
	for i, rec := range matched {
		result[i] = rec.Clone()
	}
	return result, nil
}

// ListActive returns ids of all non-terminal records.
func (r *MemoryRepository) ListActive(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0)
	for id, rec := range r.jobs {
		if !rec.IsTerminal() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
