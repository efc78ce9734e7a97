package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"aegismesh/pkg/telemetry"
)

type recordingSubscriber struct {
	mu     sync.Mutex
	topics []Topic
	got    []Message
	seen   chan struct{}
}

func (s *recordingSubscriber) Topics() []Topic { return s.topics }

func (s *recordingSubscriber) Handle(_ context.Context, msg Message) {
	s.mu.Lock()
	s.got = append(s.got, msg)
	s.mu.Unlock()
	s.seen <- struct{}{}
}

func TestBusDeliversToTopicSubscribers(t *testing.T) {
	bus := New(16)
	defer bus.Close()

	sub := &recordingSubscriber{topics: []Topic{TopicEventScored}, seen: make(chan struct{}, 1)}
	bus.Register(sub)

	ev := telemetry.Event{SourceIP: "10.0.0.1", Service: "ssh"}
	if err := bus.Publish(context.Background(), Message{Topic: TopicEventScored, Source: "analyzer", Event: ev}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	select {
	case <-sub.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the message")
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if len(sub.got) != 1 || sub.got[0].Event.SourceIP != "10.0.0.1" {
		t.Errorf("subscriber got %+v", sub.got)
	}
}

func TestBusIgnoresOtherTopics(t *testing.T) {
	bus := New(16)
	defer bus.Close()

	sub := &recordingSubscriber{topics: []Topic{Topic("unrelated")}, seen: make(chan struct{}, 1)}
	bus.Register(sub)

	if err := bus.Publish(context.Background(), Message{Topic: TopicEventScored}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	select {
	case <-sub.seen:
		t.Fatal("subscriber received a message for a topic it never declared")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusPublishAfterClose(t *testing.T) {
	bus := New(1)
	bus.Close()

	err := bus.Publish(context.Background(), Message{Topic: TopicEventScored})
	if err == nil {
		t.Error("Publish() after Close() should fail")
	}
}
