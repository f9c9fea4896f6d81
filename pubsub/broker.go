package pubsub

import (
	"context"
	"sync"
)

const bufferSize = 64

// Broker is an in-memory publish/subscribe hub.
// The type parameter T keeps event payloads type safe.
type Broker[T any] struct {
	subs       map[chan Event[T]]struct{} // active subscribers, keyed by their channel
	mu         sync.RWMutex               // guards subs
	done       chan struct{}              // closed on Shutdown
	subCount   int
	bufferSize int // per-subscriber channel capacity
}

// NewBroker creates a Broker with default settings.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithOptions[T](bufferSize)
}

// NewBrokerWithOptions creates a Broker with a custom per-subscriber buffer size.
func NewBrokerWithOptions[T any](channelBufferSize int) *Broker[T] {
	if channelBufferSize <= 0 {
		channelBufferSize = bufferSize
	}
	return &Broker[T]{
		subs:       make(map[chan Event[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: channelBufferSize,
	}
}

// Shutdown stops the broker and closes every subscriber channel.
func (b *Broker[T]) Shutdown() {
	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}

	b.subCount = 0
}

// Subscribe registers a subscriber and returns its event channel.
// The channel is unregistered and closed when ctx is done or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event[T], b.bufferSize)
	b.subs[sub] = struct{}{}
	b.subCount++

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		select {
		case <-b.done:
			return
		default:
		}

		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub)
			b.subCount--
		}
	}()

	return sub
}

// GetSubscriberCount returns the number of active subscribers.
func (b *Broker[T]) GetSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subCount
}

// Publish delivers an event to every active subscriber.
// It never blocks: a subscriber whose buffer is full misses the event.
func (b *Broker[T]) Publish(t EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	event := Event[T]{Type: t, Payload: payload}
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
		}
	}
}
