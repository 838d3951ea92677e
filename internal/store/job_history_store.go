package store

import (
	"context"

	"github.com/RezaEskandarii/jobstatus/types"
)

// JobHistoryStore is the durable archive of finished jobs, keyed by job id.
type JobHistoryStore interface {
	// Upsert inserts the record or overwrites the existing one with the same job id.
	Upsert(ctx context.Context, record types.JobRecord) error

	// Get returns nil when no record exists for jobID.
	Get(ctx context.Context, jobID string) (*types.JobRecord, error)

	// List pages through the archive, newest finish first.
	List(ctx context.Context, offset, limit int) (*types.PaginationResult[types.JobRecord], error)

	// Update overwrites an existing record and returns it, or nil when absent.
	Update(ctx context.Context, record types.JobRecord) (*types.JobRecord, error)

	// Delete removes the record and returns what was deleted, or nil when absent.
	Delete(ctx context.Context, jobID string) (*types.JobRecord, error)

	// Close closes the database
	Close() error
}
