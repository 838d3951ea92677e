package config

import "time"

const (
	DefaultInstance          = "jobstatus"
	DefaultHTTPAddress       = ":5000"
	DefaultRedisAddress      = "localhost:6379"
	DefaultKeyPrefix         = "jobstatus:"
	DefaultQueue             = "default"
	DefaultMaxJobs           = 100
	DefaultBatchSize         = 100
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultJobTimeout        = 300 * time.Second
	DefaultResultTimeout     = 5 * time.Second
	DefaultMaxTries          = 3
	DefaultLongCallTimeout   = 3 * time.Minute
	DefaultSlowTaskDelay     = 15 * time.Second
	DefaultStorageDriver     = Postgres
	DefaultMQDriver          = Channel
	DefaultKeepResultForever = true
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "pretty"
)

func defaultValues() map[string]any {
	return map[string]any{
		"instance": DefaultInstance,

		"http.address": DefaultHTTPAddress,

		"redis.address":    DefaultRedisAddress,
		"redis.db":         0,
		"redis.key_prefix": DefaultKeyPrefix,

		"worker.queue":               DefaultQueue,
		"worker.max_jobs":            DefaultMaxJobs,
		"worker.batch_size":          DefaultBatchSize,
		"worker.poll_interval":       DefaultPollInterval.String(),
		"worker.job_timeout":         DefaultJobTimeout.String(),
		"worker.result_timeout":      DefaultResultTimeout.String(),
		"worker.max_tries":           DefaultMaxTries,
		"worker.keep_result_forever": DefaultKeepResultForever,
		"worker.long_call_timeout":   DefaultLongCallTimeout.String(),
		"worker.slow_task_delay":     DefaultSlowTaskDelay.String(),

		"broker.driver": DefaultMQDriver.String(),

		"logging.level":  DefaultLogLevel,
		"logging.format": DefaultLogFormat,
	}
}
