package message_broaker

import "context"

// MessageBroker carries job-ended events from the execution pool to the reconciler.
type MessageBroker interface {
	Publish(queue string, message []byte) error
	Consume(ctx context.Context, queue string) (<-chan []byte, error)
	Close() error
}
