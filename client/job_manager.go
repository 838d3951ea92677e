package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/internal/queue"
	"github.com/RezaEskandarii/jobstatus/internal/tasks"
	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// scheduledAddSecond is the second of the minute scheduled additions fire at.
const scheduledAddSecond = 15

type StatusResolver interface {
	Resolve(ctx context.Context, jobID string) (*types.StatusView, error)
}

type HistoryLister interface {
	List(ctx context.Context, offset, limit int) (*types.PaginationResult[types.JobRecord], error)
}

type ProgressReader interface {
	Get(ctx context.Context, taskID string) (map[string]string, error)
}

// JobManager is the entry point for submitting work and reading job state back.
type JobManager struct {
	queue    queue.Client
	resolver StatusResolver
	history  HistoryLister
	progress ProgressReader
	maxTries int
	now      func() time.Time
}

func NewJobManager(q queue.Client, resolver StatusResolver, history HistoryLister, progress ProgressReader, maxTries int) *JobManager {
	return &JobManager{
		queue:    q,
		resolver: resolver,
		history:  history,
		progress: progress,
		maxTries: maxTries,
		now:      time.Now,
	}
}

// EnqueueLongCall submits a GET of rawURL. The returned task id keys the
// progress of every attempt of the call.
func (m *JobManager) EnqueueLongCall(ctx context.Context, rawURL string) (jobID, taskID string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("%w: url %q must be absolute", custom_errors.ErrInvalidArgument, rawURL)
	}

	taskID = uuid.NewString()
	jobID, err = m.queue.Submit(ctx, tasks.LongCall, []any{rawURL, taskID, m.maxTries}, queue.SubmitOptions{})
	if err != nil {
		return "", "", err
	}
	log.Info().Str("job_id", jobID).Str("task_id", taskID).Str("url", rawURL).Msg("long call queued")
	return jobID, taskID, nil
}

func (m *JobManager) EnqueueAdd(ctx context.Context, x, y float64, username string) (string, error) {
	return m.enqueue(ctx, tasks.Add, []any{x, y}, queue.SubmitOptions{CorrelationTag: username})
}

func (m *JobManager) EnqueueDivide(ctx context.Context, x, y float64, username string) (string, error) {
	return m.enqueue(ctx, tasks.Divide, []any{x, y}, queue.SubmitOptions{CorrelationTag: username})
}

// EnqueueScheduledAdd defers an addition to the next hour:minute:15.
func (m *JobManager) EnqueueScheduledAdd(ctx context.Context, x, y float64, username string, hour, minute int) (string, time.Time, error) {
	runAt, err := NextRun(hour, minute, m.now())
	if err != nil {
		return "", time.Time{}, err
	}
	jobID, err := m.enqueue(ctx, tasks.ScheduledAdd, []any{x, y}, queue.SubmitOptions{
		CorrelationTag: username,
		DeferUntil:     runAt,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return jobID, runAt, nil
}

func (m *JobManager) enqueue(ctx context.Context, function string, args []any, opts queue.SubmitOptions) (string, error) {
	jobID, err := m.queue.Submit(ctx, function, args, opts)
	if err != nil {
		log.Error().Err(err).Str("function", function).Msg("submit failed")
		return "", err
	}
	log.Info().Str("job_id", jobID).Str("function", function).Msg("job queued")
	return jobID, nil
}

// FindJob returns custom_errors.ErrJobNotFound when the job is unknown.
func (m *JobManager) FindJob(ctx context.Context, jobID string) (*types.StatusView, error) {
	return m.resolver.Resolve(ctx, jobID)
}

func (m *JobManager) History(ctx context.Context, offset, limit int) (*types.PaginationResult[types.JobRecord], error) {
	if offset < 0 || limit < 1 {
		return nil, fmt.Errorf("%w: offset must be >= 0 and limit >= 1", custom_errors.ErrInvalidArgument)
	}
	return m.history.List(ctx, offset, limit)
}

// TaskProgress returns nil when nothing was recorded for taskID.
func (m *JobManager) TaskProgress(ctx context.Context, taskID string) (map[string]string, error) {
	return m.progress.Get(ctx, taskID)
}

// NextRun computes the first hour:minute:15 strictly after from.
func NextRun(hour, minute int, from time.Time) (time.Time, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: hour must be 0-23 and minute 0-59", custom_errors.ErrInvalidArgument)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(fmt.Sprintf("%d %d %d * * *", scheduledAddSecond, minute, hour))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", custom_errors.ErrInvalidArgument, err)
	}
	return schedule.Next(from), nil
}
