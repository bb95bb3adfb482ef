package pulse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"goa.design/clue/log"
	"goa.design/pulse/streaming"

	"example.com/concierge/relay"
)

// releaseWait bounds how long Unsubscribe waits for the delivery goroutine
// to stop before giving up.
const releaseWait = 5 * time.Second

type (
	// Broker implements relay.Broker on Pulse streams. Messages are wrapped
	// in a wire envelope carrying their delivery attributes since Redis
	// stream entries have no attribute metadata of their own.
	Broker struct {
		client Client
	}

	// wireMessage is the on-stream encoding of one published message.
	wireMessage struct {
		Attributes map[string]string `json:"attributes,omitempty"`
		Data       json.RawMessage   `json:"data"`
	}

	// subscription is a live sink consumer.
	subscription struct {
		cancel   context.CancelFunc
		done     chan struct{}
		sink     Sink
		filtered bool
	}
)

// NewBroker wraps a Pulse client in the relay broker interface.
func NewBroker(client Client) *Broker {
	return &Broker{client: client}
}

// EnsureTopic creates the backing stream if it does not exist. Pulse stream
// creation is idempotent, so a pre-existing stream or a concurrent creator is
// not an error.
func (b *Broker) EnsureTopic(ctx context.Context, topic string) error {
	if _, err := b.client.Stream(topic); err != nil {
		return fmt.Errorf("ensure topic %s: %w", topic, err)
	}
	return nil
}

// Publish appends the message to the topic's stream and blocks until Redis
// acknowledges the write, bounded by the client's operation timeout.
func (b *Broker) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	str, err := b.client.Stream(topic)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	payload, err := json.Marshal(wireMessage{Attributes: attrs, Data: data})
	if err != nil {
		return fmt.Errorf("publish to %s: encode: %w", topic, err)
	}
	if _, err := str.Add(ctx, "message", payload); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe attaches a consumer group named spec.Name to the topic's stream
// and dispatches deliveries to cb on the delivery goroutine. The filter
// expression is compiled up front; when it cannot be honored the subscription
// is created unfiltered, a warning is logged, and the returned handle reports
// Filtered() == false so callers can surface the degraded mode.
func (b *Broker) Subscribe(ctx context.Context, spec relay.SubscriptionSpec, cb relay.Callback) (relay.Subscription, error) {
	filter, err := relay.ParseFilter(spec.Filter)
	filtered := spec.Filter != "" && err == nil
	if err != nil {
		log.Warnf(ctx, "pulse: subscription %s: %v; creating unfiltered", spec.Name, err)
		filter = nil
	}

	str, err := b.client.Stream(spec.Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", spec.Name, err)
	}
	sink, err := str.NewSink(ctx, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", spec.Name, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{
		cancel:   cancel,
		done:     make(chan struct{}),
		sink:     sink,
		filtered: filtered,
	}
	go b.deliver(runCtx, spec.Name, sink, filter, cb, sub.done)
	return sub, nil
}

// deliver pumps events from the sink to the callback until the subscription
// is canceled or the sink channel closes. Messages rejected by the filter are
// acked without dispatch, mirroring a broker-side filter. The callback owns
// ack/nack for dispatched messages; a nack leaves the entry unacked so the
// consumer group redelivers it after the grace period.
func (b *Broker) deliver(ctx context.Context, name string, sink Sink, filter *relay.Filter, cb relay.Callback, done chan struct{}) {
	defer close(done)
	ch := sink.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			var msg wireMessage
			if err := json.Unmarshal(evt.Payload, &msg); err != nil {
				log.Errorf(ctx, err, "pulse: %s: drop undecodable entry %s", name, evt.ID)
				b.ack(ctx, name, sink, evt)
				continue
			}
			if !filter.Match(msg.Attributes) {
				b.ack(ctx, name, sink, evt)
				continue
			}
			cb(ctx, relay.NewDelivery(msg.Data, msg.Attributes,
				func() { b.ack(ctx, name, sink, evt) },
				func() {}, // unacked entries are redelivered
			))
		}
	}
}

func (b *Broker) ack(ctx context.Context, name string, sink Sink, evt *streaming.Event) {
	if err := sink.Ack(ctx, evt); err != nil {
		log.Debugf(ctx, "pulse: %s: ack %s: %v", name, evt.ID, err)
	}
}

// Unsubscribe stops the delivery goroutine and closes the sink, waiting up to
// releaseWait for teardown. Teardown errors are swallowed.
func (s *subscription) Unsubscribe(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(releaseWait):
	}
	s.sink.Close(context.WithoutCancel(ctx))
	return nil
}

// Filtered reports whether the requested filter expression was honored.
func (s *subscription) Filtered() bool {
	return s.filtered
}
