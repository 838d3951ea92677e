package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/internal/constants"
	"github.com/RezaEskandarii/jobstatus/internal/metrics"
	"github.com/RezaEskandarii/jobstatus/internal/queue"
	"github.com/RezaEskandarii/jobstatus/internal/state"
	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/rs/zerolog/log"
)

// HistoryReader is the read side of the job history the resolver falls back to.
type HistoryReader interface {
	Get(ctx context.Context, jobID string) (*types.JobRecord, error)
}

// Resolver merges the queue engine's view of a job with the job history
// into one StatusView. It holds no state and is safe for concurrent use.
type Resolver struct {
	queue         queue.Client
	history       HistoryReader
	resultTimeout time.Duration
}

func NewResolver(q queue.Client, history HistoryReader, resultTimeout time.Duration) *Resolver {
	return &Resolver{queue: q, history: history, resultTimeout: resultTimeout}
}

// Resolve returns custom_errors.ErrJobNotFound when neither layer knows jobID.
func (r *Resolver) Resolve(ctx context.Context, jobID string) (*types.StatusView, error) {
	if view := r.fromTransient(ctx, jobID); view != nil {
		metrics.ResolverLookupsTotal.WithLabelValues("transient").Inc()
		return view, nil
	}

	record, err := r.history.Get(ctx, jobID)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("job history lookup failed")
		record = nil
	}
	if record == nil {
		metrics.ResolverLookupsTotal.WithLabelValues("none").Inc()
		return nil, custom_errors.ErrJobNotFound
	}

	metrics.ResolverLookupsTotal.WithLabelValues("durable").Inc()
	return fromRecord(record), nil
}

// fromTransient returns nil when the queue engine cannot answer or says the
// job is gone and nothing observed contradicts it.
func (r *Resolver) fromTransient(ctx context.Context, jobID string) *types.StatusView {
	// The signal is read before the metadata. A job finishing in between is
	// then seen through its result record and never as a finished signal
	// over a still pending definition.
	signal, err := r.queue.Status(ctx, jobID)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("queue engine status failed, falling back to history")
		return nil
	}

	job, err := r.queue.Metadata(ctx, jobID)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("queue engine lookup failed, falling back to history")
		return nil
	}
	if job == nil {
		return nil
	}

	status := signal
	if signal == state.StatusComplete && !job.Success {
		status = state.StatusFailed
	}

	// A running job has no start time of its own yet; its enqueue time stands in.
	startTime := job.StartTime
	if status == state.StatusInProgress {
		enqueued := job.EnqueueTime
		startTime = &enqueued
	}

	// The engine can briefly report a job as gone while its data is still
	// readable, e.g. when no worker is running. Treat it as still queued.
	if status == state.StatusNotFound {
		if startTime == nil {
			return nil
		}
		status = state.StatusQueued
	}

	view := &types.StatusView{
		JobID:      job.JobID,
		Status:     status,
		Success:    job.Success,
		Result:     map[string]any{},
		StartTime:  formatTime(startTime),
		FinishTime: formatTime(job.FinishTime),
		Username:   correlationTag(job.Kwargs),
		Function:   job.Function,
		Args:       renderArgs(job.Args),
		Attempts:   job.Attempts,
	}

	if status.IsTerminal() {
		r.attachResult(ctx, view)
	}
	return view
}

func (r *Resolver) attachResult(ctx context.Context, view *types.StatusView) {
	result, err := r.queue.Result(ctx, view.JobID, r.resultTimeout)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, custom_errors.ErrResultTimeout) {
			msg = fmt.Sprintf("timeout: result of job %s not readable within %s", view.JobID, r.resultTimeout)
		}
		view.Error = &msg
		return
	}

	switch res := result.(type) {
	case types.ErrorResult:
		msg := res.Message
		view.Error = &msg
	case types.MapResult, types.ScalarResult:
		view.Result = types.Payload(res)
	}
}

func fromRecord(record *types.JobRecord) *types.StatusView {
	status, ok := state.Parse(string(record.Status))
	if !ok || status == state.StatusNotFound {
		log.Warn().Str("job_id", record.JobID).Str("status", string(record.Status)).Msg("unknown status in job history, reporting failed")
		status = state.StatusFailed
	}

	result := record.ResultPayload
	if result == nil {
		result = map[string]any{}
	}

	return &types.StatusView{
		JobID:      record.JobID,
		Status:     status,
		Success:    record.Success,
		Result:     result,
		StartTime:  formatTime(record.StartTime),
		FinishTime: formatTime(record.FinishTime),
		Username:   record.Username,
		Function:   record.FunctionName,
		Args:       record.ArgsPayload,
		Error:      record.ErrorMessage,
		Attempts:   record.Attempts,
	}
}

func correlationTag(kwargs map[string]any) string {
	if tag, ok := kwargs[constants.CorrelationKwarg].(string); ok {
		return tag
	}
	return ""
}

func renderArgs(args []any) string {
	if args == nil {
		args = []any{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprint(args)
	}
	return string(b)
}

func formatTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}
