package types

import "time"

// JobEndedEvent is published once a job has a stored result.
type JobEndedEvent struct {
	JobID      string    `json:"job_id"`
	Function   string    `json:"function"`
	Success    bool      `json:"success"`
	FinishedAt time.Time `json:"finished_at"`
}
