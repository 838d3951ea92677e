package queue

import (
	"context"
	"testing"
	"time"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/internal/state"
	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, resultTTL time.Duration) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisQueue(rdb, "test:", "default", resultTTL), mr
}

func TestSubmit_StoresDefinitionAndQueueEntry(t *testing.T) {
	q, mr := newTestQueue(t, 0)
	ctx := context.Background()

	jobID, err := q.Submit(ctx, "add", []any{1.0, 2.0}, SubmitOptions{CorrelationTag: "alice"})
	require.NoError(t, err)
	require.Len(t, jobID, 32)

	assert.True(t, mr.Exists("test:job:"+jobID))
	members, err := mr.ZMembers("test:queue:default")
	require.NoError(t, err)
	assert.Equal(t, []string{jobID}, members)

	job, err := q.Metadata(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "add", job.Function)
	assert.Equal(t, []any{1.0, 2.0}, job.Args)
	assert.Equal(t, "alice", job.Kwargs["username"])
	assert.Equal(t, 1, job.Attempts)
	assert.Nil(t, job.StartTime)
	assert.Nil(t, job.Result)
}

func TestSubmit_RequiresFunction(t *testing.T) {
	q, _ := newTestQueue(t, 0)

	_, err := q.Submit(context.Background(), "", nil, SubmitOptions{})
	assert.Error(t, err)
}

func TestSubmit_KeepsAttempt(t *testing.T) {
	q, _ := newTestQueue(t, 0)
	ctx := context.Background()

	jobID, err := q.Submit(ctx, "long_call", []any{"http://x", "task", int64(3)}, SubmitOptions{Attempt: 2})
	require.NoError(t, err)

	job, err := q.Job(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, []any{"http://x", "task", int64(3)}, job.Args)
}

func TestStatus_Signals(t *testing.T) {
	q, _ := newTestQueue(t, 0)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	deferredID, err := q.Submit(ctx, "scheduled_add", []any{1.0, 1.0}, SubmitOptions{DeferUntil: now.Add(time.Hour)})
	require.NoError(t, err)
	delayedID, err := q.Submit(ctx, "add", []any{1.0, 1.0}, SubmitOptions{Delay: time.Minute})
	require.NoError(t, err)
	dueID, err := q.Submit(ctx, "add", []any{1.0, 1.0}, SubmitOptions{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		jobID    string
		expected state.JobStatus
	}{
		{name: "defer until", jobID: deferredID, expected: state.StatusDeferred},
		{name: "delay", jobID: delayedID, expected: state.StatusDeferred},
		{name: "due", jobID: dueID, expected: state.StatusQueued},
		{name: "unknown", jobID: "missing", expected: state.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := q.Status(ctx, tt.jobID)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, status)
		})
	}

	claimed, err := q.Claim(ctx, dueID, "worker-1", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	status, err := q.Status(ctx, dueID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusInProgress, status)
}

func TestDue_ReturnsOnlyDueJobs(t *testing.T) {
	q, _ := newTestQueue(t, 0)
	ctx := context.Background()

	dueID, err := q.Submit(ctx, "add", []any{1.0, 2.0}, SubmitOptions{})
	require.NoError(t, err)
	_, err = q.Submit(ctx, "add", []any{1.0, 2.0}, SubmitOptions{Delay: time.Hour})
	require.NoError(t, err)

	ids, err := q.Due(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{dueID}, ids)
}

func TestClaim_IsExclusive(t *testing.T) {
	q, mr := newTestQueue(t, 0)
	ctx := context.Background()

	jobID, err := q.Submit(ctx, "add", []any{1.0, 2.0}, SubmitOptions{})
	require.NoError(t, err)

	first, err := q.Claim(ctx, jobID, "worker-1", time.Minute)
	require.NoError(t, err)
	second, err := q.Claim(ctx, jobID, "worker-2", time.Minute)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, time.Minute+claimGrace, mr.TTL("test:in-progress:"+jobID))
}

func TestFinish_StoresResultAndClearsJob(t *testing.T) {
	q, mr := newTestQueue(t, 0)
	ctx := context.Background()

	jobID, err := q.Submit(ctx, "add", []any{2.0, 3.0}, SubmitOptions{CorrelationTag: "bob"})
	require.NoError(t, err)
	_, err = q.Claim(ctx, jobID, "worker-1", time.Minute)
	require.NoError(t, err)

	job, err := q.Job(ctx, jobID)
	require.NoError(t, err)

	start := time.Now().UTC().Truncate(time.Millisecond)
	finish := start.Add(2 * time.Second)
	err = q.Finish(ctx, job, Outcome{
		StartTime:  start,
		FinishTime: finish,
		Success:    true,
		Result:     types.MapResult{"result": 5.0, "username": "bob"},
	})
	require.NoError(t, err)

	assert.False(t, mr.Exists("test:job:"+jobID))
	assert.False(t, mr.Exists("test:in-progress:"+jobID))
	assert.Equal(t, time.Duration(0), mr.TTL("test:result:"+jobID))

	status, err := q.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusComplete, status)

	meta, err := q.Metadata(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.True(t, meta.Success)
	assert.Equal(t, start, *meta.StartTime)
	assert.Equal(t, finish, *meta.FinishTime)
	assert.Equal(t, "bob", meta.Kwargs["username"])
	assert.Equal(t, types.MapResult{"result": 5.0, "username": "bob"}, meta.Result)

	result, err := q.Result(ctx, jobID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, types.MapResult{"result": 5.0, "username": "bob"}, result)
}

func TestFinish_ResultVariants(t *testing.T) {
	tests := []struct {
		name   string
		result types.Result
	}{
		{name: "scalar", result: types.ScalarResult{Value: 5.0}},
		{name: "error", result: types.ErrorResult{Message: "division by zero"}},
		{name: "empty map", result: types.MapResult{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := newTestQueue(t, 0)
			ctx := context.Background()

			jobID, err := q.Submit(ctx, "divide", []any{10.0, 2.0}, SubmitOptions{})
			require.NoError(t, err)
			job, err := q.Job(ctx, jobID)
			require.NoError(t, err)

			now := time.Now()
			require.NoError(t, q.Finish(ctx, job, Outcome{StartTime: now, FinishTime: now, Result: tt.result}))

			result, err := q.Result(ctx, jobID, time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.result, result)
		})
	}
}

func TestFinish_AppliesResultTTL(t *testing.T) {
	q, mr := newTestQueue(t, time.Hour)
	ctx := context.Background()

	jobID, err := q.Submit(ctx, "add", []any{1.0, 1.0}, SubmitOptions{})
	require.NoError(t, err)
	job, err := q.Job(ctx, jobID)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, q.Finish(ctx, job, Outcome{StartTime: now, FinishTime: now, Success: true, Result: types.ScalarResult{Value: 2.0}}))
	assert.Equal(t, time.Hour, mr.TTL("test:result:"+jobID))

	mr.FastForward(2 * time.Hour)

	meta, err := q.Metadata(ctx, jobID)
	require.NoError(t, err)
	assert.Nil(t, meta)

	status, err := q.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusNotFound, status)
}

func TestResult_TimesOut(t *testing.T) {
	q, _ := newTestQueue(t, 0)

	_, err := q.Result(context.Background(), "never-finished", 120*time.Millisecond)
	assert.ErrorIs(t, err, custom_errors.ErrResultTimeout)
}

func TestMetadata_Missing(t *testing.T) {
	q, _ := newTestQueue(t, 0)

	meta, err := q.Metadata(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestMetadata_RedisDown(t *testing.T) {
	q, mr := newTestQueue(t, 0)
	mr.Close()

	_, err := q.Metadata(context.Background(), "any")
	assert.Error(t, err)
}

func TestAbandon(t *testing.T) {
	q, mr := newTestQueue(t, 0)
	ctx := context.Background()

	jobID, err := q.Submit(ctx, "add", []any{1.0, 1.0}, SubmitOptions{})
	require.NoError(t, err)
	_, err = q.Claim(ctx, jobID, "worker-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, q.Abandon(ctx, jobID))

	assert.False(t, mr.Exists("test:in-progress:"+jobID))
	members, _ := mr.ZMembers("test:queue:default")
	assert.Empty(t, members)
}

func TestRelease(t *testing.T) {
	q, mr := newTestQueue(t, 0)
	ctx := context.Background()

	jobID, err := q.Submit(ctx, "add", []any{1.0, 1.0}, SubmitOptions{})
	require.NoError(t, err)
	claimed, err := q.Claim(ctx, jobID, "worker-1", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, q.Release(ctx, jobID))

	assert.False(t, mr.Exists("test:in-progress:"+jobID))
	assert.True(t, mr.Exists("test:job:"+jobID))
	status, err := q.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusQueued, status)

	claimed, err = q.Claim(ctx, jobID, "worker-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}
