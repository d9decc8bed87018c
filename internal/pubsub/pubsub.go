// Package pubsub fans refresh events out to SSE clients, gRPC watchers and
// the bot, optionally across instances through NATS.
package pubsub

import (
	"sync"
	"time"

	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
)

// Event types published by the seal service
const (
	EventDatasetRefreshed = "dataset:refreshed"
	EventRefreshFailed    = "dataset:refresh_failed"
	EventPlayersChanged   = "players:changed"
)

// Event represents a pubsub event
type Event struct {
	Type string `json:"type"`
	// Origin identifies the publishing instance so peers can tell their own
	// events from remote ones
	Origin  string                 `json:"origin,omitempty"`
	At      time.Time              `json:"at"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType, origin string, payload map[string]interface{}) Event {
	return Event{Type: eventType, Origin: origin, At: time.Now().UTC(), Payload: payload}
}

// Bus is what the service and the transports depend on
type Bus interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// fanout is the subscriber list shared by every implementation
type fanout struct {
	mu          sync.RWMutex
	subscribers []chan Event
	buffer      int
}

func (f *fanout) add() chan Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, f.buffer)
	f.subscribers = append(f.subscribers, ch)
	logger.Debug("PubSub: New subscriber added", "totalSubscribers", len(f.subscribers))
	return ch
}

func (f *fanout) remove(ch chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, sub := range f.subscribers {
		if sub == ch {
			close(ch)
			f.subscribers = append(f.subscribers[:i], f.subscribers[i+1:]...)
			break
		}
	}
}

// broadcast never blocks; a full subscriber misses the event. The read lock
// is held while sending so remove and closeAll cannot close a channel mid-send.
func (f *fanout) broadcast(event Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn("PubSub: Skipping slow subscriber", "type", event.Type)
		}
	}
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subscribers {
		close(sub)
	}
	f.subscribers = nil
}

func (f *fanout) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// PubSub implements a simple publish-subscribe system
type PubSub struct {
	fanout
	upstream Bus // Optional upstream publisher (e.g., NATS)
}

// New creates a new PubSub instance
func New() *PubSub {
	return &PubSub{fanout: fanout{subscribers: []chan Event{}, buffer: 10}}
}

// NewWithUpstream creates a PubSub that bridges to an upstream publisher.
// Publish goes to the upstream, which broadcasts back to every instance
// including this one; upstream events are forwarded to local subscribers.
func NewWithUpstream(upstream Bus) *PubSub {
	ps := New()
	ps.upstream = upstream

	ch := upstream.Subscribe()
	go func() {
		for event := range ch {
			logger.Debug("PubSub: Received event from upstream", "type", event.Type, "origin", event.Origin)
			ps.broadcast(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	return ps.add()
}

// Unsubscribe removes a subscriber and closes its channel
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.remove(ch)
}

// Publish sends an event to all subscribers, through the upstream when set
func (ps *PubSub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.broadcast(event)
}

// SubscriberCount returns the number of local subscribers
func (ps *PubSub) SubscriberCount() int {
	return ps.count()
}
