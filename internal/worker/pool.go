package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/RezaEskandarii/jobstatus/internal/message_broaker"
	"github.com/RezaEskandarii/jobstatus/internal/metrics"
	"github.com/RezaEskandarii/jobstatus/internal/queue"
	"github.com/RezaEskandarii/jobstatus/internal/state"
	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/RezaEskandarii/jobstatus/types/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Engine is the part of the queue engine the pool drives.
type Engine interface {
	Due(ctx context.Context, limit int) ([]string, error)
	Claim(ctx context.Context, jobID, owner string, jobTimeout time.Duration) (bool, error)
	Job(ctx context.Context, jobID string) (*types.TransientJob, error)
	Abandon(ctx context.Context, jobID string) error
	Release(ctx context.Context, jobID string) error
	Finish(ctx context.Context, job *types.TransientJob, outcome queue.Outcome) error
}

// Pool claims due jobs and runs them, at most MaxJobs at a time.
type Pool struct {
	engine     Engine
	handlers   *JobHandler
	broker     message_broaker.MessageBroker
	eventQueue string
	instance   string
	cfg        config.WorkerConfig
	now        func() time.Time
}

func NewPool(engine Engine, handlers *JobHandler, broker message_broaker.MessageBroker, eventQueue, instance string, cfg config.WorkerConfig) *Pool {
	return &Pool{
		engine:     engine,
		handlers:   handlers,
		broker:     broker,
		eventQueue: eventQueue,
		instance:   instance,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Start polls until ctx is cancelled, then waits for running jobs.
func (p *Pool) Start(ctx context.Context) error {
	sem := semaphore.NewWeighted(int64(p.cfg.MaxJobs))
	var wg sync.WaitGroup

	log.Info().
		Str("instance", p.instance).
		Int("max_jobs", p.cfg.MaxJobs).
		Strs("functions", p.handlers.List()).
		Msg("execution pool started")

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		p.processDueJobs(ctx, sem, &wg)

		select {
		case <-ctx.Done():
			wg.Wait()
			log.Info().Str("instance", p.instance).Msg("execution pool stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Pool) processDueJobs(ctx context.Context, sem *semaphore.Weighted, wg *sync.WaitGroup) {
	ids, err := p.engine.Due(ctx, p.cfg.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("fetch due jobs")
		}
		return
	}

	for _, jobID := range ids {
		if !sem.TryAcquire(1) {
			return
		}

		ok, err := p.engine.Claim(ctx, jobID, p.instance, p.cfg.JobTimeout)
		if err != nil || !ok {
			if err != nil {
				log.Error().Err(err).Str("job_id", jobID).Msg("claim job")
			}
			sem.Release(1)
			continue
		}

		wg.Add(1)
		go p.handleJob(ctx, sem, wg, jobID)
	}
}

func (p *Pool) handleJob(ctx context.Context, sem *semaphore.Weighted, wg *sync.WaitGroup, jobID string) {
	defer func() {
		sem.Release(1)
		wg.Done()
	}()

	job, err := p.engine.Job(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("load job")
		return
	}
	if job == nil {
		log.Warn().Str("job_id", jobID).Msg("job definition missing, dropping queue entry")
		if err := p.engine.Abandon(ctx, jobID); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("abandon job")
		}
		return
	}

	p.Run(ctx, job)
}

// Run executes a claimed job, stores its result and announces the end.
func (p *Pool) Run(ctx context.Context, job *types.TransientJob) {
	logger := log.With().
		Str("job_id", job.JobID).
		Str("function", job.Function).
		Int("attempt", job.Attempts).
		Logger()

	logger.Debug().Msg("job started")

	metrics.RunningJobs.Inc()
	start := p.now()
	value, err := p.execute(ctx, job)
	finish := p.now()
	metrics.RunningJobs.Dec()

	// Cut short by shutdown: hand the job back instead of failing it.
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		if err := p.engine.Release(context.WithoutCancel(ctx), job.JobID); err != nil {
			logger.Error().Err(err).Msg("release interrupted job")
			return
		}
		logger.Warn().Msg("job interrupted, released for another run")
		return
	}
	metrics.JobDurationSeconds.WithLabelValues(job.Function).Observe(finish.Sub(start).Seconds())

	outcome := queue.Outcome{StartTime: start, FinishTime: finish, Success: err == nil}
	final := state.StatusComplete
	if err != nil {
		final = state.StatusFailed
		outcome.Result = types.ErrorResult{Message: err.Error()}
		logger.Error().Err(err).Msg("job failed")
	} else {
		outcome.Result = types.NewResult(value)
	}
	metrics.JobsCompletedTotal.WithLabelValues(job.Function, strconv.FormatBool(outcome.Success)).Inc()

	// The job context may already be done; the result must still be stored.
	storeCtx := context.WithoutCancel(ctx)
	if err := p.engine.Finish(storeCtx, job, outcome); err != nil {
		logger.Error().Err(err).Msg("store job result")
		return
	}
	logger.Info().Str("status", final.String()).Dur("took", finish.Sub(start)).Msg("job finished")

	p.publish(job, outcome)
}

func (p *Pool) execute(ctx context.Context, job *types.TransientJob) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job %s: %v", job.JobID, r)
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	jc := JobContext{
		JobID:       job.JobID,
		Attempt:     job.Attempts,
		Kwargs:      job.Kwargs,
		EnqueueTime: job.EnqueueTime,
	}
	return p.handlers.Execute(jobCtx, job.Function, jc, job.Args)
}

func (p *Pool) publish(job *types.TransientJob, outcome queue.Outcome) {
	if p.broker == nil {
		return
	}
	payload, err := json.Marshal(types.JobEndedEvent{
		JobID:      job.JobID,
		Function:   job.Function,
		Success:    outcome.Success,
		FinishedAt: outcome.FinishTime,
	})
	if err != nil {
		log.Error().Err(err).Str("job_id", job.JobID).Msg("encode job ended event")
		return
	}
	if err := p.broker.Publish(p.eventQueue, payload); err != nil {
		log.Error().Err(err).Str("job_id", job.JobID).Msg("publish job ended event")
	}
}
