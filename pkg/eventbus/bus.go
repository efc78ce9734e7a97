// Package eventbus is the analyzer's in-process fan-out for scored
// telemetry. Dispatch is asynchronous so publishing never blocks the
// ingestion path.
package eventbus

import (
	"context"
	"sync"

	"aegismesh/pkg/telemetry"
)

// Topic names a message stream on the bus.
type Topic string

const (
	// TopicEventScored carries every event after scoring.
	TopicEventScored Topic = "event.scored"
)

// Message is one scored-event notification.
type Message struct {
	Topic  Topic
	Source string
	Event  telemetry.Event
}

// Subscriber receives messages for the topics it declares.
type Subscriber interface {
	Topics() []Topic
	Handle(ctx context.Context, msg Message)
}

// Bus is a minimal buffered pub/sub dispatcher.
type Bus struct {
	mu    sync.RWMutex
	subs  map[Topic][]Subscriber
	queue chan Message
	stop  chan struct{}
	done  sync.WaitGroup
}

// New constructs a bus with the given queue depth and starts its
// dispatch loop.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	b := &Bus{
		subs:  make(map[Topic][]Subscriber),
		queue: make(chan Message, buffer),
		stop:  make(chan struct{}),
	}
	b.done.Add(1)
	go b.loop()
	return b
}

// Register adds a subscriber for all of its declared topics.
func (b *Bus) Register(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range sub.Topics() {
		b.subs[t] = append(b.subs[t], sub)
	}
}

// Publish enqueues a message. It fails only when the caller's context
// ends or the bus has been closed.
func (b *Bus) Publish(ctx context.Context, msg Message) error {
	select {
	case <-b.stop:
		return context.Canceled
	default:
	}
	select {
	case b.queue <- msg:
		return nil
	case <-b.stop:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops dispatching. Queued messages are dropped.
func (b *Bus) Close() {
	close(b.stop)
	b.done.Wait()
}

func (b *Bus) loop() {
	defer b.done.Done()
	for {
		select {
		case msg := <-b.queue:
			b.dispatch(msg)
		case <-b.stop:
			return
		}
	}
}

func (b *Bus) dispatch(msg Message) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[msg.Topic]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.Handle(context.Background(), msg)
	}
}
