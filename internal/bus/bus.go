package bus

import (
	"log/slog"
	"sync"
)

// TopicBus delivers every published Event to every current subscriber.
//
// Each subscriber owns a buffered channel. Publish never blocks: when a
// subscriber's buffer is full the event is dropped for that subscriber only.
type TopicBus struct {
	bufSize int

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

func NewTopicBus(bufSize int) *TopicBus {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &TopicBus{bufSize: bufSize, subs: make(map[int]chan Event)}
}

// Publish sends payload on topic to all subscribers.
func (b *TopicBus) Publish(topic string, payload map[string]any) {
	evt := NewEvent(topic, payload)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			slog.Warn("bus: subscriber full, dropping event", "subscriber", id, "topic", topic)
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes its channel; it is safe to call more than once.
func (b *TopicBus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.bufSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the current subscriber count.
func (b *TopicBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel; later publishes are discarded.
func (b *TopicBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
