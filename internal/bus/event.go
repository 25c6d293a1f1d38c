// Package bus is the host's publish/subscribe bus.
package bus

import "time"

// Event is one message published on a topic.
type Event struct {
	topic     string
	payload   map[string]any
	timestamp time.Time
}

// NewEvent creates an Event with Timestamp set to now.
func NewEvent(topic string, payload map[string]any) Event {
	return Event{topic: topic, payload: payload, timestamp: time.Now()}
}

func (e Event) Topic() string           { return e.topic }
func (e Event) Payload() map[string]any { return e.payload }
func (e Event) Timestamp() time.Time    { return e.timestamp }

// Wire is the JSON form of an Event as streamed to subscribers.
type Wire struct {
	Topic   string         `json:"topic"`
	Payload map[string]any `json:"payload"`
	Time    time.Time      `json:"time"`
}

func (e Event) Wire() Wire {
	return Wire{Topic: e.topic, Payload: e.payload, Time: e.timestamp}
}
