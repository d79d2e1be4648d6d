package job

import (
	"context"
	"errors"
)

// Sentinel errors for job lookup and mutation.
var (
	// ErrNotFound is returned when a job cannot be found by ID.
	ErrNotFound = errors.New("job: not found")
	// ErrConflict is returned when an operation is illegal in the job's
	// current state, such as cancelling a terminal job.
	ErrConflict = errors.New("job: conflict with current state")
)

// Filter narrows a List query. Zero values mean "no constraint".
type Filter struct {
	OwnerID     string
	WorkspaceID string
	Status      Status
	// Limit bounds the page size. Zero applies the repository default.
	Limit int
	// Offset skips that many records in created_at descending order.
	// Negative values behave like zero.
	Offset int
}

// DefaultListLimit bounds List results when the filter does not set one.
const DefaultListLimit = 50

// Repository defines the persistence port for job records.
//
// Update is the only mutation path after creation: implementations must run
// the mutator while holding the record's lock so that concurrent
// read-modify-write cycles on the same id never interleave.
type Repository interface {
	// Create persists a new record. The record's ID must be unset in storage.
	Create(ctx context.Context, rec *Record) error

	// FindByID retrieves a record by its unique identifier.
	// Returns ErrNotFound if the record does not exist.
	FindByID(ctx context.Context, id string) (*Record, error)

	// Update applies fn to the current record under per-record mutual
	// exclusion and persists the result. If fn returns an error, nothing is
	// written and the error is returned. Returns the record as persisted.
	// Returns ErrNotFound if the record does not exist.
	Update(ctx context.Context, id string, fn func(*Record) error) (*Record, error)

	// List returns records matching the filter, ordered by created_at
	// descending, bounded by Limit/Offset.
	List(ctx context.Context, f Filter) ([]*Record, error)

	// ListActive returns the ids of all non-terminal records, for the
	// reconciliation poller.
	ListActive(ctx context.Context) ([]string, error)
}
