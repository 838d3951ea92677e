package message_broaker

import (
	"context"
	"errors"
	"sync"
)

var ErrBrokerClosed = errors.New("message broker closed")

// ChannelBroker delivers messages between goroutines of one process.
// Publish never blocks: when a queue buffer is full the message is dropped
// and Publish reports it.
type ChannelBroker struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	size   int
	closed bool
}

func NewChannelBroker(bufferSize int) *ChannelBroker {
	if bufferSize < 1 {
		bufferSize = 1000
	}
	return &ChannelBroker{
		queues: make(map[string]chan []byte),
		size:   bufferSize,
	}
}

func (b *ChannelBroker) queue(name string) chan []byte {
	ch, ok := b.queues[name]
	if !ok {
		ch = make(chan []byte, b.size)
		b.queues[name] = ch
	}
	return ch
}

func (b *ChannelBroker) Publish(queue string, message []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}
	select {
	case b.queue(queue) <- message:
		return nil
	default:
		return errors.New("queue " + queue + " is full")
	}
}

// Consume returns the messages of queue until ctx ends or the broker closes.
// Several consumers of one queue share its messages.
func (b *ChannelBroker) Consume(ctx context.Context, queue string) (<-chan []byte, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	in := b.queue(queue)
	b.mu.Unlock()

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *ChannelBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, ch := range b.queues {
		close(ch)
	}
	return nil
}
