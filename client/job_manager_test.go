package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RezaEskandarii/jobstatus/client"
	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/internal/queue"
	"github.com/RezaEskandarii/jobstatus/internal/state"
	"github.com/RezaEskandarii/jobstatus/internal/tasks"
	"github.com/RezaEskandarii/jobstatus/internal/test/mocks"
	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submission struct {
	function string
	args     []any
	opts     queue.SubmitOptions
}

func recordingQueue(subs *[]submission) *mocks.MockQueueClient {
	return &mocks.MockQueueClient{
		SubmitFunc: func(ctx context.Context, function string, args []any, opts queue.SubmitOptions) (string, error) {
			*subs = append(*subs, submission{function: function, args: args, opts: opts})
			return "job-1", nil
		},
	}
}

type stubResolver struct {
	view *types.StatusView
	err  error
}

func (s stubResolver) Resolve(ctx context.Context, jobID string) (*types.StatusView, error) {
	return s.view, s.err
}

type stubProgress map[string]map[string]string

func (s stubProgress) Get(ctx context.Context, taskID string) (map[string]string, error) {
	return s[taskID], nil
}

func TestEnqueueLongCall(t *testing.T) {
	var subs []submission
	jm := client.NewJobManager(recordingQueue(&subs), stubResolver{}, mocks.NewMockJobHistoryStore(), stubProgress{}, 3)

	jobID, taskID, err := jm.EnqueueLongCall(context.Background(), "https://example.com/data")
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Len(t, taskID, 36)

	require.Len(t, subs, 1)
	assert.Equal(t, tasks.LongCall, subs[0].function)
	assert.Equal(t, []any{"https://example.com/data", taskID, 3}, subs[0].args)
}

func TestEnqueueLongCall_RejectsRelativeURL(t *testing.T) {
	var subs []submission
	jm := client.NewJobManager(recordingQueue(&subs), stubResolver{}, mocks.NewMockJobHistoryStore(), stubProgress{}, 3)

	_, _, err := jm.EnqueueLongCall(context.Background(), "not a url")
	assert.ErrorIs(t, err, custom_errors.ErrInvalidArgument)
	assert.Empty(t, subs)
}

func TestEnqueueAddAndDivide(t *testing.T) {
	var subs []submission
	jm := client.NewJobManager(recordingQueue(&subs), stubResolver{}, mocks.NewMockJobHistoryStore(), stubProgress{}, 3)

	_, err := jm.EnqueueAdd(context.Background(), 2, 3, "alice")
	require.NoError(t, err)
	_, err = jm.EnqueueDivide(context.Background(), 10, 2, "")
	require.NoError(t, err)

	require.Len(t, subs, 2)
	assert.Equal(t, tasks.Add, subs[0].function)
	assert.Equal(t, []any{2.0, 3.0}, subs[0].args)
	assert.Equal(t, "alice", subs[0].opts.CorrelationTag)
	assert.Equal(t, tasks.Divide, subs[1].function)
	assert.Empty(t, subs[1].opts.CorrelationTag)
}

func TestEnqueue_SubmitError(t *testing.T) {
	q := &mocks.MockQueueClient{
		SubmitFunc: func(ctx context.Context, function string, args []any, opts queue.SubmitOptions) (string, error) {
			return "", errors.New("redis down")
		},
	}
	jm := client.NewJobManager(q, stubResolver{}, mocks.NewMockJobHistoryStore(), stubProgress{}, 3)

	_, err := jm.EnqueueAdd(context.Background(), 1, 1, "")
	assert.EqualError(t, err, "redis down")
}

func TestEnqueueScheduledAdd(t *testing.T) {
	var subs []submission
	jm := client.NewJobManager(recordingQueue(&subs), stubResolver{}, mocks.NewMockJobHistoryStore(), stubProgress{}, 3)

	_, runAt, err := jm.EnqueueScheduledAdd(context.Background(), 1, 2, "bob", 23, 59)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, tasks.ScheduledAdd, subs[0].function)
	assert.Equal(t, runAt, subs[0].opts.DeferUntil)
	assert.Equal(t, 23, runAt.Hour())
	assert.Equal(t, 59, runAt.Minute())
	assert.Equal(t, 15, runAt.Second())
	assert.True(t, runAt.After(time.Now()))
}

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		hour, minute int
		want         time.Time
	}{
		{"later today", 10, 0, time.Date(2026, 5, 4, 10, 0, 15, 0, time.UTC)},
		{"same minute before the second", 9, 30, time.Date(2026, 5, 4, 9, 30, 15, 0, time.UTC)},
		{"already passed", 8, 0, time.Date(2026, 5, 5, 8, 0, 15, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.NextRun(tt.hour, tt.minute, from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextRun_InvalidTime(t *testing.T) {
	for _, hm := range [][2]int{{24, 0}, {-1, 0}, {0, 60}, {0, -5}} {
		_, err := client.NextRun(hm[0], hm[1], time.Now())
		assert.ErrorIs(t, err, custom_errors.ErrInvalidArgument)
	}
}

func TestFindJob(t *testing.T) {
	view := &types.StatusView{JobID: "j1", Status: state.StatusComplete}
	jm := client.NewJobManager(&mocks.MockQueueClient{}, stubResolver{view: view}, mocks.NewMockJobHistoryStore(), stubProgress{}, 3)

	got, err := jm.FindJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, view, got)

	jm = client.NewJobManager(&mocks.MockQueueClient{}, stubResolver{err: custom_errors.ErrJobNotFound}, mocks.NewMockJobHistoryStore(), stubProgress{}, 3)
	_, err = jm.FindJob(context.Background(), "nope")
	assert.ErrorIs(t, err, custom_errors.ErrJobNotFound)
}

func TestHistory(t *testing.T) {
	history := mocks.NewMockJobHistoryStore()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, history.Upsert(context.Background(), types.JobRecord{JobID: id, Status: state.StatusComplete}))
	}
	jm := client.NewJobManager(&mocks.MockQueueClient{}, stubResolver{}, history, stubProgress{}, 3)

	page, err := jm.History(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItems)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "b", page.Items[0].JobID)

	_, err = jm.History(context.Background(), -1, 10)
	assert.ErrorIs(t, err, custom_errors.ErrInvalidArgument)
}

func TestTaskProgress(t *testing.T) {
	progress := stubProgress{"t1": {"status": "completed", "tries": "2"}}
	jm := client.NewJobManager(&mocks.MockQueueClient{}, stubResolver{}, mocks.NewMockJobHistoryStore(), progress, 3)

	got, err := jm.TaskProgress(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "2", got["tries"])

	got, err = jm.TaskProgress(context.Background(), "t2")
	require.NoError(t, err)
	assert.Nil(t, got)
}
