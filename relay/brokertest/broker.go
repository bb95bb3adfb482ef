// Package brokertest provides an in-memory relay.Broker for tests. Published
// messages are delivered synchronously to matching subscriptions, honoring
// attribute filters the way the Pulse broker does, and the broker supports
// forcing the unfiltered fallback and injecting publish failures.
package brokertest

import (
	"context"
	"sync"

	"example.com/concierge/relay"
)

type (
	// Broker is an in-memory implementation of relay.Broker.
	Broker struct {
		// PublishErr, when non-nil, is returned by every Publish call.
		PublishErr error
		// RejectFilters forces every subscription onto the unfiltered
		// fallback regardless of the requested expression.
		RejectFilters bool

		mu     sync.Mutex
		topics map[string]bool
		subs   []*Subscription
		// published records every successful publish in order.
		published []Published
	}

	// Published is one recorded publish call.
	Published struct {
		Topic      string
		Data       []byte
		Attributes map[string]string
	}

	// Subscription is a live in-memory subscription.
	Subscription struct {
		Name     string
		Topic    string
		broker   *Broker
		filter   *relay.Filter
		filtered bool
		cb       relay.Callback
		closed   bool
	}
)

// New constructs an empty in-memory broker.
func New() *Broker {
	return &Broker{topics: make(map[string]bool)}
}

// EnsureTopic records the topic.
func (b *Broker) EnsureTopic(ctx context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[topic] = true
	return nil
}

// Publish records the message and synchronously delivers it to every
// matching subscription on the caller's goroutine.
func (b *Broker) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	if b.PublishErr != nil {
		return b.PublishErr
	}
	b.mu.Lock()
	b.published = append(b.published, Published{Topic: topic, Data: data, Attributes: attrs})
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if !s.closed && s.Topic == topic {
			subs = append(subs, s)
		}
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Deliver(ctx, data, attrs)
	}
	return nil
}

// Subscribe registers a subscription. A filter that fails to parse, or any
// filter when RejectFilters is set, degrades to the unfiltered fallback.
func (b *Broker) Subscribe(ctx context.Context, spec relay.SubscriptionSpec, cb relay.Callback) (relay.Subscription, error) {
	filter, err := relay.ParseFilter(spec.Filter)
	filtered := spec.Filter != "" && err == nil
	if err != nil || b.RejectFilters {
		filter = nil
		filtered = false
	}
	sub := &Subscription{
		Name:     spec.Name,
		Topic:    spec.Topic,
		broker:   b,
		filter:   filter,
		filtered: filtered,
		cb:       cb,
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

// Published returns a copy of every successfully published message.
func (b *Broker) Published() []Published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Published(nil), b.published...)
}

// Subscriptions returns the subscriptions created so far, including closed
// ones.
func (b *Broker) Subscriptions() []*Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Subscription(nil), b.subs...)
}

// Deliver hands one message to the subscription's callback, applying the
// filter first like a broker-side filter would. It is exported so tests can
// inject messages without going through Publish.
func (s *Subscription) Deliver(ctx context.Context, data []byte, attrs map[string]string) {
	s.broker.mu.Lock()
	closed := s.closed
	s.broker.mu.Unlock()
	if closed || !s.filter.Match(attrs) {
		return
	}
	s.cb(ctx, relay.NewDelivery(data, attrs, nil, nil))
}

// Unsubscribe marks the subscription closed.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.closed = true
	return nil
}

// Filtered reports whether the requested filter was honored.
func (s *Subscription) Filtered() bool {
	return s.filtered
}

// Closed reports whether Unsubscribe was called.
func (s *Subscription) Closed() bool {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	return s.closed
}
