package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/internal/metrics"
	"github.com/RezaEskandarii/jobstatus/internal/queue"
	"github.com/rs/zerolog/log"
)

// Submitter re-enqueues a task for its next attempt.
type Submitter interface {
	Submit(ctx context.Context, function string, args []any, opts queue.SubmitOptions) (string, error)
}

// Task describes one attempt of a retried task.
type Task struct {
	ID       string // key of the progress hash
	Function string
	Args     []any
	Kwargs   map[string]any
	URL      string
	Attempt  int
	MaxTries int
}

// Attempt performs the work once. Errors must be classified with
// custom_errors.TransientExecutionFault or PermanentExecutionFault;
// anything unclassified is treated as permanent.
type Attempt func(ctx context.Context) (any, error)

type Runner struct {
	progress  ProgressRecorder
	submitter Submitter
}

func NewRunner(progress ProgressRecorder, submitter Submitter) *Runner {
	return &Runner{progress: progress, submitter: submitter}
}

// Run executes attempt once and decides what happens next. Progress writes
// are best effort: a failing side channel never changes the outcome.
func (r *Runner) Run(ctx context.Context, task Task, attempt Attempt) Outcome {
	if task.Attempt < 1 {
		task.Attempt = 1
	}
	logger := log.With().
		Str("task_id", task.ID).
		Str("function", task.Function).
		Int("attempt", task.Attempt).
		Int("max_tries", task.MaxTries).
		Logger()

	if err := r.progress.Start(ctx, task.ID, task.URL, task.Attempt, task.MaxTries); err != nil {
		logger.Warn().Err(err).Msg("record task progress")
	}

	value, err := attempt(ctx)
	if err == nil {
		if err := r.progress.Succeed(ctx, task.ID, render(value)); err != nil {
			logger.Warn().Err(err).Msg("record task success")
		}
		return Success{Value: value}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		logger.Warn().Err(err).Msg("attempt interrupted")
		return Interrupted{Err: ctx.Err()}
	}

	// A job deadline must not stop the failure record or the next attempt.
	ctx = context.WithoutCancel(ctx)

	if !custom_errors.IsTransient(err) {
		logger.Error().Err(err).Bool("classified", custom_errors.IsPermanent(err)).Msg("permanent failure, not retrying")
		r.recordFailure(ctx, task.ID, err.Error())
		return Fail{Message: err.Error()}
	}

	if task.Attempt >= task.MaxTries {
		msg := fmt.Sprintf("max retries exceeded: %v", err)
		logger.Error().Err(err).Msg("retries exhausted")
		r.recordFailure(ctx, task.ID, msg)
		return Fail{Message: msg}
	}

	next := task.Attempt + 1
	if _, subErr := r.submitter.Submit(ctx, task.Function, task.Args, queue.SubmitOptions{
		Kwargs:  task.Kwargs,
		Attempt: next,
	}); subErr != nil {
		msg := fmt.Sprintf("resubmit attempt %d: %v", next, subErr)
		logger.Error().Err(subErr).Msg("resubmit failed")
		r.recordFailure(ctx, task.ID, msg)
		return Fail{Message: msg}
	}

	metrics.JobRetriesTotal.WithLabelValues(task.Function).Inc()
	logger.Warn().Err(err).Int("next_attempt", next).Msg("transient failure, resubmitted")
	return Retry{Attempt: next, Cause: err.Error()}
}

func (r *Runner) recordFailure(ctx context.Context, taskID, message string) {
	if err := r.progress.Fail(ctx, taskID, message); err != nil {
		log.Warn().Err(err).Str("task_id", taskID).Msg("record task failure")
	}
}

func render(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(b)
}
