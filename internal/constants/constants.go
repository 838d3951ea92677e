package constants

const (
	MigrationLock = iota
	ReconcileLock
)

var Locks = []int{
	MigrationLock,
	ReconcileLock,
}

// Key segments of the queue engine, appended to the configured prefix.
const (
	QueueKeyPrefix      = "queue:"
	JobKeyPrefix        = "job:"
	InProgressKeyPrefix = "in-progress:"
	ResultKeyPrefix     = "result:"
	TaskKeyPrefix       = "task:"
)

// CorrelationKwarg is the keyed argument carrying the submitting user.
const CorrelationKwarg = "username"

// JobEndedQueue is the broker queue carrying ids of finished jobs.
const JobEndedQueue = "jobstatus.job_ended"
