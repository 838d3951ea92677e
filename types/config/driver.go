package config

import "strings"

type StorageDriver int

const (
	Postgres StorageDriver = iota + 1
)

// String converts the StorageDriver enum to a human-readable string.
func (d StorageDriver) String() string {
	switch d {
	case Postgres:
		return "postgres"
	}
	return "unknown"
}

type MessageQueueDriver int

const (
	// Channel delivers completion events inside the worker process.
	Channel MessageQueueDriver = iota + 1
	RabbitMQ
)

func (d MessageQueueDriver) String() string {
	switch d {
	case Channel:
		return "channel"
	case RabbitMQ:
		return "rabbitmq"
	default:
		return "unknown"
	}
}

// ParseMessageQueueDriver accepts the String form of a driver, case-insensitively.
func ParseMessageQueueDriver(s string) (MessageQueueDriver, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "channel":
		return Channel, true
	case "rabbitmq":
		return RabbitMQ, true
	}
	return 0, false
}
