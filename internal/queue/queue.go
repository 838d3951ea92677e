package queue

import (
	"context"
	"time"

	"github.com/RezaEskandarii/jobstatus/internal/state"
	"github.com/RezaEskandarii/jobstatus/types"
)

// SubmitOptions tunes a single submission. The zero value enqueues an
// immediately due first attempt with no correlation tag.
type SubmitOptions struct {
	CorrelationTag string         // stored as the "username" keyed argument
	Kwargs         map[string]any // extra keyed arguments
	Delay          time.Duration
	DeferUntil     time.Time // wins over Delay when set
	Attempt        int       // attempt number of this submission, 1 when zero
}

// Client is the queue engine capability the rest of the service depends on.
type Client interface {
	// Submit enqueues function with args and returns the new job id.
	Submit(ctx context.Context, function string, args []any, opts SubmitOptions) (string, error)

	// Metadata returns the engine's view of the job, or nil when the engine
	// no longer (or never) knew it.
	Metadata(ctx context.Context, jobID string) (*types.TransientJob, error)

	// Status returns the engine signal. A finished job reports StatusComplete
	// regardless of its success flag; StatusNotFound means no trace remains.
	Status(ctx context.Context, jobID string) (state.JobStatus, error)

	// Result waits up to timeout for the stored result of a finished job.
	Result(ctx context.Context, jobID string, timeout time.Duration) (types.Result, error)
}
