package types

import (
	"time"

	"github.com/RezaEskandarii/jobstatus/internal/state"
)

// TransientJob is the queue engine's own view of a job. It disappears
// once the engine evicts the job.
type TransientJob struct {
	JobID       string
	Function    string
	Args        []any
	Kwargs      map[string]any
	EnqueueTime time.Time
	StartTime   *time.Time
	FinishTime  *time.Time
	Attempts    int
	Success     bool
	Result      Result
	Queue       string
}

// StatusView is the reconciled status returned to callers regardless of
// which layer answered.
type StatusView struct {
	JobID      string          `json:"job_id"`
	Status     state.JobStatus `json:"status"`
	Success    bool            `json:"success"`
	Result     map[string]any  `json:"result"`
	StartTime  *string         `json:"start_time"`
	FinishTime *string         `json:"finish_time"`
	Username   string          `json:"username"`
	Function   string          `json:"function"`
	Args       string          `json:"args"`
	Error      *string         `json:"error"`
	Attempts   int             `json:"attempts"`
}

// JobRecord is one row of the job history table.
type JobRecord struct {
	JobID         string          `json:"job_id"`
	Status        state.JobStatus `json:"status"`
	Success       bool            `json:"success"`
	ResultPayload map[string]any  `json:"result_payload"`
	StartTime     *time.Time      `json:"start_time"`
	FinishTime    *time.Time      `json:"finish_time"`
	Username      string          `json:"username"`
	FunctionName  string          `json:"function_name"`
	ArgsPayload   string          `json:"args_payload"`
	ErrorMessage  *string         `json:"error_message"`
	Attempts      int             `json:"attempts"`
}
