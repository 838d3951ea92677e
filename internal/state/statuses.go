package state

type JobStatus string

const (
	StatusDeferred   JobStatus = "deferred"
	StatusQueued     JobStatus = "queued"
	StatusInProgress JobStatus = "in_progress"
	StatusComplete   JobStatus = "complete"
	StatusFailed     JobStatus = "failed"
	StatusNotFound   JobStatus = "not_found"
)

func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions can happen from s.
func (s JobStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

var AllStatuses = []JobStatus{
	StatusDeferred,
	StatusQueued,
	StatusInProgress,
	StatusComplete,
	StatusFailed,
	StatusNotFound,
}

// Parse maps a stored string onto the closed status set.
func Parse(s string) (JobStatus, bool) {
	for _, status := range AllStatuses {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// TaskProgress is the status written to the per-task progress hash.
type TaskProgress string

const (
	ProgressInProgress TaskProgress = "in-progress"
	ProgressSuccess    TaskProgress = "success"
	ProgressFailure    TaskProgress = "failure"
)

func (p TaskProgress) String() string {
	return string(p)
}
