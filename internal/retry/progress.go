package retry

import (
	"context"
	"strconv"

	"github.com/RezaEskandarii/jobstatus/internal/constants"
	"github.com/RezaEskandarii/jobstatus/internal/state"
	"github.com/redis/go-redis/v9"
)

// ProgressRecorder is the side channel where a retried task reports how far it got.
type ProgressRecorder interface {
	Start(ctx context.Context, taskID, url string, attempt, maxTries int) error
	Succeed(ctx context.Context, taskID, result string) error
	Fail(ctx context.Context, taskID, message string) error
	Get(ctx context.Context, taskID string) (map[string]string, error)
}

// RedisProgressRecorder keeps progress in the hash task:<task_id>.
type RedisProgressRecorder struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisProgressRecorder(rdb *redis.Client, prefix string) *RedisProgressRecorder {
	return &RedisProgressRecorder{rdb: rdb, prefix: prefix}
}

func (r *RedisProgressRecorder) key(taskID string) string {
	return r.prefix + constants.TaskKeyPrefix + taskID
}

func (r *RedisProgressRecorder) Start(ctx context.Context, taskID, url string, attempt, maxTries int) error {
	return r.rdb.HSet(ctx, r.key(taskID), map[string]interface{}{
		"status":    string(state.ProgressInProgress),
		"url":       url,
		"tries":     strconv.Itoa(attempt),
		"max_tries": strconv.Itoa(maxTries),
	}).Err()
}

func (r *RedisProgressRecorder) Succeed(ctx context.Context, taskID, result string) error {
	return r.rdb.HSet(ctx, r.key(taskID), map[string]interface{}{
		"status": string(state.ProgressSuccess),
		"result": result,
	}).Err()
}

func (r *RedisProgressRecorder) Fail(ctx context.Context, taskID, message string) error {
	return r.rdb.HSet(ctx, r.key(taskID), map[string]interface{}{
		"status": string(state.ProgressFailure),
		"error":  message,
	}).Err()
}

// Get returns the recorded fields, or nil when nothing was recorded for taskID.
func (r *RedisProgressRecorder) Get(ctx context.Context, taskID string) (map[string]string, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key(taskID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}
