package bus

import (
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestPublish_FansOut(t *testing.T) {
	b := NewTopicBus(4)
	a, cancelA := b.Subscribe()
	defer cancelA()
	c, cancelC := b.Subscribe()
	defer cancelC()

	b.Publish("lights", map[string]any{"params": "on"})

	for _, ch := range []<-chan Event{a, c} {
		evt := recv(t, ch)
		if evt.Topic() != "lights" {
			t.Errorf("expected topic lights, got %q", evt.Topic())
		}
		if evt.Payload()["params"] != "on" {
			t.Errorf("unexpected payload %v", evt.Payload())
		}
	}
}

func TestPublish_FullSubscriberDoesNotBlock(t *testing.T) {
	b := NewTopicBus(1)
	ch, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		b.Publish("a", nil)
		b.Publish("b", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on full subscriber")
	}
	if evt := recv(t, ch); evt.Topic() != "a" {
		t.Errorf("expected first event to be kept, got %q", evt.Topic())
	}
}

func TestSubscribe_Cancel(t *testing.T) {
	b := NewTopicBus(1)
	ch, cancel := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.Subscribers())
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
	if b.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.Subscribers())
	}
}

func TestClose(t *testing.T) {
	b := NewTopicBus(1)
	ch, cancel := b.Subscribe()
	b.Close()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}
	b.Publish("late", nil)

	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected subscribe after Close to return a closed channel")
	}
}
