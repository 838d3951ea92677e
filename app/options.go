package app

import (
	"database/sql"

	"github.com/RezaEskandarii/jobstatus/internal/message_broaker"
	"github.com/RezaEskandarii/jobstatus/internal/worker"
	"github.com/redis/go-redis/v9"
)

// ContainerOption configures Container creation. Used for testing and customization.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	// Optional: inject custom connections instead of creating them from config
	db     *sql.DB
	redis  *redis.Client
	broker message_broaker.MessageBroker

	extraTasks map[string]worker.HandlerFunc
}

// WithDB injects a custom database connection. Useful for testing.
func WithDB(db *sql.DB) ContainerOption {
	return func(c *containerConfig) {
		c.db = db
	}
}

// WithRedis injects a custom Redis client. Useful for testing.
func WithRedis(redis *redis.Client) ContainerOption {
	return func(c *containerConfig) {
		c.redis = redis
	}
}

// WithMessageBroker replaces the broker selected by config.
func WithMessageBroker(broker message_broaker.MessageBroker) ContainerOption {
	return func(c *containerConfig) {
		c.broker = broker
	}
}

// WithTask registers an additional job function next to the built-in tasks.
// Reusing a built-in name fails NewContainer.
func WithTask(name string, fn worker.HandlerFunc) ContainerOption {
	return func(c *containerConfig) {
		if c.extraTasks == nil {
			c.extraTasks = make(map[string]worker.HandlerFunc)
		}
		c.extraTasks[name] = fn
	}
}
