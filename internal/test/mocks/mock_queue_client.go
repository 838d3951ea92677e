package mocks

import (
	"context"
	"time"

	"github.com/RezaEskandarii/jobstatus/internal/queue"
	"github.com/RezaEskandarii/jobstatus/internal/state"
	"github.com/RezaEskandarii/jobstatus/types"
)

// MockQueueClient is a mock implementation of queue.Client for testing.
type MockQueueClient struct {
	SubmitFunc   func(ctx context.Context, function string, args []any, opts queue.SubmitOptions) (string, error)
	MetadataFunc func(ctx context.Context, jobID string) (*types.TransientJob, error)
	StatusFunc   func(ctx context.Context, jobID string) (state.JobStatus, error)
	ResultFunc   func(ctx context.Context, jobID string, timeout time.Duration) (types.Result, error)
}

func (m *MockQueueClient) Submit(ctx context.Context, function string, args []any, opts queue.SubmitOptions) (string, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, function, args, opts)
	}
	return "job-id", nil
}

func (m *MockQueueClient) Metadata(ctx context.Context, jobID string) (*types.TransientJob, error) {
	if m.MetadataFunc != nil {
		return m.MetadataFunc(ctx, jobID)
	}
	return nil, nil
}

func (m *MockQueueClient) Status(ctx context.Context, jobID string) (state.JobStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, jobID)
	}
	return state.StatusNotFound, nil
}

func (m *MockQueueClient) Result(ctx context.Context, jobID string, timeout time.Duration) (types.Result, error) {
	if m.ResultFunc != nil {
		return m.ResultFunc(ctx, jobID, timeout)
	}
	return types.MapResult{}, nil
}

var _ queue.Client = (*MockQueueClient)(nil)
