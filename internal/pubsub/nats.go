package pubsub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
)

// NATSOptions configures the JetStream stream behind a NATSPubSub
type NATSOptions struct {
	Subject    string
	StreamName string
	Storage    nats.StorageType
	MaxAge     time.Duration
}

// NATSPubSub implements pub/sub using NATS JetStream. Every instance
// subscribes to the subject, so one refresh reaches all of them.
type NATSPubSub struct {
	fanout
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
}

// NewNATSPubSub connects to natsURL and binds to the given stream
func NewNATSPubSub(natsURL string, opts NATSOptions) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL, nats.Name("seal-tracker"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ps, err := newNATSPubSub(nc, opts)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return ps, nil
}

func newNATSPubSub(nc *nats.Conn, opts NATSOptions) (*NATSPubSub, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Create the stream unless another instance already did
	if _, err := js.StreamInfo(opts.StreamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     opts.StreamName,
			Subjects: []string{opts.Subject},
			Storage:  opts.Storage,
			MaxAge:   opts.MaxAge,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", opts.StreamName, err)
		}
		logger.Info("JetStream stream created", "stream", opts.StreamName, "subject", opts.Subject)
	}

	ps := &NATSPubSub{
		fanout:  fanout{subscribers: make([]chan Event, 0), buffer: 100},
		nc:      nc,
		js:      js,
		subject: opts.Subject,
	}

	ps.sub, err = js.Subscribe(opts.Subject, ps.handle, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", opts.Subject, err)
	}

	return ps, nil
}

func (p *NATSPubSub) handle(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err)
		msg.Term()
		return
	}

	p.broadcast(event)
	msg.Ack()
}

// Publish publishes an event to NATS JetStream
func (p *NATSPubSub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	if _, err := p.js.Publish(p.subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", p.subject, "event_type", event.Type)
		return
	}

	logger.Debug("Published event to NATS", "event_type", event.Type, "subject", p.subject)
}

// Subscribe creates a subscription channel for events
func (p *NATSPubSub) Subscribe() chan Event {
	return p.add()
}

// Unsubscribe removes a subscription channel
func (p *NATSPubSub) Unsubscribe(ch chan Event) {
	p.remove(ch)
}

// SubscriberCount returns the number of active local subscribers
func (p *NATSPubSub) SubscriberCount() int {
	return p.count()
}

// Close drains the subscription and closes the NATS connection
func (p *NATSPubSub) Close() {
	if p.sub != nil {
		p.sub.Unsubscribe()
	}
	p.closeAll()
	if p.nc != nil {
		p.nc.Close()
	}
}
