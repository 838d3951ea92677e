package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/RezaEskandarii/jobstatus/custom_errors"
	"github.com/RezaEskandarii/jobstatus/internal/retry"
	"github.com/RezaEskandarii/jobstatus/internal/worker"
)

// LongCall GETs a URL and returns its decoded JSON body.
// Args: url, task_id, max_tries (optional).
func (t *Tasks) LongCall(ctx context.Context, jc worker.JobContext, args []any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("expected url and task_id, got %d arguments", len(args))
	}
	url, ok := args[0].(string)
	if !ok || url == "" {
		return nil, errors.New("url must be a non-empty string")
	}
	taskID, ok := args[1].(string)
	if !ok || taskID == "" {
		return nil, errors.New("task_id must be a non-empty string")
	}
	maxTries := t.maxTries
	if len(args) > 2 {
		n, err := toFloat(args[2])
		if err != nil {
			return nil, fmt.Errorf("max_tries: %w", err)
		}
		maxTries = int(n)
	}

	outcome := t.runner.Run(ctx, retry.Task{
		ID:       taskID,
		Function: LongCall,
		Args:     args,
		Kwargs:   jc.Kwargs,
		URL:      url,
		Attempt:  jc.Attempt,
		MaxTries: maxTries,
	}, func(ctx context.Context) (any, error) {
		return t.get(ctx, url)
	})
	return retry.Settle(outcome)
}

func (t *Tasks) get(ctx context.Context, url string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &custom_errors.PermanentExecutionFault{Err: err}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &custom_errors.TransientExecutionFault{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &custom_errors.PermanentExecutionFault{
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &custom_errors.PermanentExecutionFault{Err: fmt.Errorf("decode response: %w", err)}
	}
	return body, nil
}
