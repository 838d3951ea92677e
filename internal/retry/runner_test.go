package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/internal/queue"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submission struct {
	function string
	args     []any
	opts     queue.SubmitOptions
}

type mockSubmitter struct {
	mu          sync.Mutex
	submissions []submission
	err         error
}

func (m *mockSubmitter) Submit(ctx context.Context, function string, args []any, opts queue.SubmitOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.submissions = append(m.submissions, submission{function: function, args: args, opts: opts})
	return "next-job", nil
}

func newTestRecorder(t *testing.T) (*RedisProgressRecorder, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisProgressRecorder(rdb, "test:"), rdb
}

func refused() error {
	return &custom_errors.TransientExecutionFault{Err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused")}
}

func TestRunner_Success(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	submitter := &mockSubmitter{}
	runner := NewRunner(recorder, submitter)
	ctx := context.Background()

	task := Task{ID: "t1", Function: "long_call", URL: "http://example.com", Attempt: 1, MaxTries: 3}
	outcome := runner.Run(ctx, task, func(ctx context.Context) (any, error) {
		return map[string]any{"ok": true}, nil
	})

	assert.Equal(t, Success{Value: map[string]any{"ok": true}}, outcome)
	assert.Empty(t, submitter.submissions)

	progress, err := recorder.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "success", progress["status"])
	assert.Equal(t, `{"ok":true}`, progress["result"])
	assert.Equal(t, "http://example.com", progress["url"])
	assert.Equal(t, "1", progress["tries"])
	assert.Equal(t, "3", progress["max_tries"])
}

func TestRunner_TransientBelowMaxResubmits(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	submitter := &mockSubmitter{}
	runner := NewRunner(recorder, submitter)
	ctx := context.Background()

	args := []any{"http://127.0.0.1:1", "t2", int64(3)}
	outcome := runner.Run(ctx, Task{ID: "t2", Function: "long_call", Args: args, Attempt: 1, MaxTries: 3},
		func(ctx context.Context) (any, error) { return nil, refused() })

	retry, ok := outcome.(Retry)
	require.True(t, ok)
	assert.Equal(t, 2, retry.Attempt)

	require.Len(t, submitter.submissions, 1)
	assert.Equal(t, "long_call", submitter.submissions[0].function)
	assert.Equal(t, args, submitter.submissions[0].args)
	assert.Equal(t, 2, submitter.submissions[0].opts.Attempt)

	progress, err := recorder.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "in-progress", progress["status"])
}

func TestRunner_TransientUntilExhausted(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	submitter := &mockSubmitter{}
	runner := NewRunner(recorder, submitter)
	ctx := context.Background()

	var outcomes []Outcome
	calls := 0
	for attempt := 1; attempt <= 3; attempt++ {
		outcomes = append(outcomes, runner.Run(ctx, Task{ID: "t3", Function: "long_call", Attempt: attempt, MaxTries: 3},
			func(ctx context.Context) (any, error) {
				calls++
				return nil, refused()
			}))
	}

	assert.Equal(t, 3, calls)
	assert.Len(t, submitter.submissions, 2)
	assert.Equal(t, 2, submitter.submissions[0].opts.Attempt)
	assert.Equal(t, 3, submitter.submissions[1].opts.Attempt)

	fail, ok := outcomes[2].(Fail)
	require.True(t, ok)
	assert.Contains(t, fail.Message, "max retries exceeded")

	progress, err := recorder.Get(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, "failure", progress["status"])
	assert.Equal(t, "3", progress["tries"])
	assert.Contains(t, progress["error"], "max retries exceeded")
}

func TestRunner_PermanentIsNotRetried(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	submitter := &mockSubmitter{}
	runner := NewRunner(recorder, submitter)
	ctx := context.Background()

	outcome := runner.Run(ctx, Task{ID: "t4", Function: "long_call", Attempt: 1, MaxTries: 3},
		func(ctx context.Context) (any, error) {
			return nil, &custom_errors.PermanentExecutionFault{StatusCode: 404, Err: errors.New("Not Found")}
		})

	fail, ok := outcome.(Fail)
	require.True(t, ok)
	assert.Equal(t, "permanent fault: status 404: Not Found", fail.Message)
	assert.Empty(t, submitter.submissions)

	progress, err := recorder.Get(ctx, "t4")
	require.NoError(t, err)
	assert.Equal(t, "failure", progress["status"])
}

func TestRunner_UnclassifiedErrorIsPermanent(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	submitter := &mockSubmitter{}
	runner := NewRunner(recorder, submitter)

	outcome := runner.Run(context.Background(), Task{ID: "t5", Function: "long_call", Attempt: 1, MaxTries: 3},
		func(ctx context.Context) (any, error) { return nil, errors.New("boom") })

	assert.Equal(t, Fail{Message: "boom"}, outcome)
	assert.Empty(t, submitter.submissions)
}

func TestRunner_ResubmitFailureIsTerminal(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	submitter := &mockSubmitter{err: errors.New("redis down")}
	runner := NewRunner(recorder, submitter)

	outcome := runner.Run(context.Background(), Task{ID: "t6", Function: "long_call", Attempt: 1, MaxTries: 3},
		func(ctx context.Context) (any, error) { return nil, refused() })

	fail, ok := outcome.(Fail)
	require.True(t, ok)
	assert.Contains(t, fail.Message, "redis down")
}

func TestRunner_ProgressFailureDoesNotChangeOutcome(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	recorder := NewRedisProgressRecorder(rdb, "test:")
	mr.Close()

	runner := NewRunner(recorder, &mockSubmitter{})
	outcome := runner.Run(context.Background(), Task{ID: "t7", Function: "long_call", Attempt: 1, MaxTries: 3},
		func(ctx context.Context) (any, error) { return "done", nil })

	assert.Equal(t, Success{Value: "done"}, outcome)
}

func TestSettle(t *testing.T) {
	value, err := Settle(Success{Value: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, value)

	_, err = Settle(Retry{Attempt: 2, Cause: "connection refused"})
	require.Error(t, err)
	assert.Equal(t, "connection refused (resubmitted as attempt 2)", err.Error())

	_, err = Settle(Fail{Message: "max retries exceeded: refused"})
	require.Error(t, err)
	assert.Equal(t, "max retries exceeded: refused", err.Error())
}

func TestProgressGet_Missing(t *testing.T) {
	recorder, _ := newTestRecorder(t)

	progress, err := recorder.Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, progress)
}

func TestRunner_CancelledAttemptIsInterrupted(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	submitter := &mockSubmitter{}
	runner := NewRunner(recorder, submitter)
	ctx, cancel := context.WithCancel(context.Background())

	task := Task{ID: "t-stop", Function: "long_call", URL: "http://example.com", Attempt: 1, MaxTries: 3}
	outcome := runner.Run(ctx, task, func(ctx context.Context) (any, error) {
		cancel()
		return nil, &custom_errors.TransientExecutionFault{Err: ctx.Err()}
	})

	assert.Equal(t, Interrupted{Err: context.Canceled}, outcome)
	assert.Empty(t, submitter.submissions)

	_, err := Settle(outcome)
	assert.ErrorIs(t, err, context.Canceled)

	progress, err := recorder.Get(context.Background(), "t-stop")
	require.NoError(t, err)
	assert.Equal(t, "in-progress", progress["status"])
}

func TestRunner_ExpiredDeadlineStillResubmits(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	submitter := &mockSubmitter{}
	runner := NewRunner(recorder, submitter)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	task := Task{ID: "t-late", Function: "long_call", Args: []any{"http://example.com", "t-late"}, Attempt: 1, MaxTries: 3}
	outcome := runner.Run(ctx, task, func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, refused()
	})

	assert.Equal(t, Retry{Attempt: 2, Cause: refused().Error()}, outcome)
	require.Len(t, submitter.submissions, 1)
	assert.Equal(t, 2, submitter.submissions[0].opts.Attempt)

	progress, err := recorder.Get(context.Background(), "t-late")
	require.NoError(t, err)
	assert.Equal(t, "in-progress", progress["status"])
}
