package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/internal/constants"
	"github.com/RezaEskandarii/jobstatus/internal/metrics"
	"github.com/RezaEskandarii/jobstatus/internal/state"
	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	resultPollInterval = 50 * time.Millisecond
	claimGrace         = 10 * time.Second
)

// RedisQueue is the Redis implementation of Client. Due jobs sit in a
// sorted set scored by due time (unix ms); everything else is a plain key.
type RedisQueue struct {
	rdb       *redis.Client
	prefix    string
	queueName string
	resultTTL time.Duration
	now       func() time.Time
}

// NewRedisQueue builds a queue over rdb. A zero resultTTL keeps results forever.
func NewRedisQueue(rdb *redis.Client, prefix, queueName string, resultTTL time.Duration) *RedisQueue {
	return &RedisQueue{
		rdb:       rdb,
		prefix:    prefix,
		queueName: queueName,
		resultTTL: resultTTL,
		now:       time.Now,
	}
}

func (q *RedisQueue) queueKey() string {
	return q.prefix + constants.QueueKeyPrefix + q.queueName
}

func (q *RedisQueue) jobKey(jobID string) string {
	return q.prefix + constants.JobKeyPrefix + jobID
}

func (q *RedisQueue) inProgressKey(jobID string) string {
	return q.prefix + constants.InProgressKeyPrefix + jobID
}

func (q *RedisQueue) resultKey(jobID string) string {
	return q.prefix + constants.ResultKeyPrefix + jobID
}

func (q *RedisQueue) Submit(ctx context.Context, function string, args []any, opts SubmitOptions) (string, error) {
	if function == "" {
		return "", errors.New("function name is required")
	}

	jobID := strings.ReplaceAll(uuid.NewString(), "-", "")
	now := q.now()

	due := now
	switch {
	case !opts.DeferUntil.IsZero():
		due = opts.DeferUntil
	case opts.Delay > 0:
		due = now.Add(opts.Delay)
	}

	attempt := opts.Attempt
	if attempt < 1 {
		attempt = 1
	}

	kwargs := make(map[string]any, len(opts.Kwargs)+1)
	for k, v := range opts.Kwargs {
		kwargs[k] = v
	}
	if opts.CorrelationTag != "" {
		kwargs[constants.CorrelationKwarg] = opts.CorrelationTag
	}
	if args == nil {
		args = []any{}
	}

	def := jobDefinition{
		Function:      function,
		Args:          args,
		Kwargs:        kwargs,
		Tries:         attempt,
		EnqueueTimeMs: toMillis(now),
		Score:         toMillis(due),
	}
	payload, err := encode(def)
	if err != nil {
		return "", fmt.Errorf("encode job %s: %w", function, err)
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.jobKey(jobID), payload, 0)
		pipe.ZAdd(ctx, q.queueKey(), redis.Z{Score: float64(def.Score), Member: jobID})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", function, err)
	}

	metrics.JobsSubmittedTotal.WithLabelValues(function).Inc()
	return jobID, nil
}

func (q *RedisQueue) Metadata(ctx context.Context, jobID string) (*types.TransientJob, error) {
	raw, err := q.rdb.Get(ctx, q.resultKey(jobID)).Bytes()
	switch {
	case err == nil:
		var rec resultRecord
		if err := decode(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", jobID, err)
		}
		return rec.transient(jobID)
	case !errors.Is(err, redis.Nil):
		return nil, err
	}

	def, err := q.definition(ctx, jobID)
	if err != nil || def == nil {
		return nil, err
	}
	return def.transient(jobID, q.queueName), nil
}

func (q *RedisQueue) Status(ctx context.Context, jobID string) (state.JobStatus, error) {
	n, err := q.rdb.Exists(ctx, q.resultKey(jobID)).Result()
	if err != nil {
		return state.StatusNotFound, err
	}
	if n > 0 {
		return state.StatusComplete, nil
	}

	n, err = q.rdb.Exists(ctx, q.inProgressKey(jobID)).Result()
	if err != nil {
		return state.StatusNotFound, err
	}
	if n > 0 {
		return state.StatusInProgress, nil
	}

	score, err := q.rdb.ZScore(ctx, q.queueKey(), jobID).Result()
	if errors.Is(err, redis.Nil) {
		return state.StatusNotFound, nil
	}
	if err != nil {
		return state.StatusNotFound, err
	}
	if int64(score) > toMillis(q.now()) {
		return state.StatusDeferred, nil
	}
	return state.StatusQueued, nil
}

func (q *RedisQueue) Result(ctx context.Context, jobID string, timeout time.Duration) (types.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(resultPollInterval)
	defer ticker.Stop()

	for {
		raw, err := q.rdb.Get(ctx, q.resultKey(jobID)).Bytes()
		if err == nil {
			var rec resultRecord
			if err := decode(raw, &rec); err != nil {
				return nil, fmt.Errorf("decode result %s: %w", jobID, err)
			}
			return decodeResult(rec.Kind, rec.Value)
		}
		if !errors.Is(err, redis.Nil) {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, custom_errors.ErrResultTimeout
			}
			return nil, err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, custom_errors.ErrResultTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Due returns up to limit job ids whose due time has passed, oldest first.
func (q *RedisQueue) Due(ctx context.Context, limit int) ([]string, error) {
	return q.rdb.ZRangeByScore(ctx, q.queueKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(toMillis(q.now()), 10),
		Count: int64(limit),
	}).Result()
}

// Claim marks the job as running on behalf of owner. Only one caller wins;
// the marker expires on its own after jobTimeout plus a grace period.
func (q *RedisQueue) Claim(ctx context.Context, jobID, owner string, jobTimeout time.Duration) (bool, error) {
	return q.rdb.SetNX(ctx, q.inProgressKey(jobID), owner, jobTimeout+claimGrace).Result()
}

// Job loads the definition of a claimed job. It returns nil when the
// definition is gone, e.g. because another worker already finished it.
func (q *RedisQueue) Job(ctx context.Context, jobID string) (*types.TransientJob, error) {
	def, err := q.definition(ctx, jobID)
	if err != nil || def == nil {
		return nil, err
	}
	return def.transient(jobID, q.queueName), nil
}

// Abandon drops the queue entry and claim of a job whose definition is missing.
func (q *RedisQueue) Abandon(ctx context.Context, jobID string) error {
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.queueKey(), jobID)
		pipe.Del(ctx, q.inProgressKey(jobID))
		return nil
	})
	return err
}

// Release drops only the claim of a job, leaving it due for the next worker.
func (q *RedisQueue) Release(ctx context.Context, jobID string) error {
	return q.rdb.Del(ctx, q.inProgressKey(jobID)).Err()
}

// Outcome is what the execution pool reports for a finished job.
type Outcome struct {
	StartTime  time.Time
	FinishTime time.Time
	Success    bool
	Result     types.Result
}

// Finish stores the result record and removes every trace of the pending job.
func (q *RedisQueue) Finish(ctx context.Context, job *types.TransientJob, outcome Outcome) error {
	kind, value := encodeResult(outcome.Result)
	rec := resultRecord{
		Function:      job.Function,
		Args:          job.Args,
		Kwargs:        job.Kwargs,
		Tries:         job.Attempts,
		EnqueueTimeMs: toMillis(job.EnqueueTime),
		StartTimeMs:   toMillis(outcome.StartTime),
		FinishTimeMs:  toMillis(outcome.FinishTime),
		Success:       outcome.Success,
		Kind:          kind,
		Value:         value,
		Queue:         q.queueName,
	}
	payload, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", job.JobID, err)
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.resultKey(job.JobID), payload, q.resultTTL)
		pipe.ZRem(ctx, q.queueKey(), job.JobID)
		pipe.Del(ctx, q.jobKey(job.JobID), q.inProgressKey(job.JobID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store result %s: %w", job.JobID, err)
	}
	return nil
}

func (q *RedisQueue) definition(ctx context.Context, jobID string) (*jobDefinition, error) {
	raw, err := q.rdb.Get(ctx, q.jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var def jobDefinition
	if err := decode(raw, &def); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &def, nil
}
