package relay

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"goa.design/clue/log"
)

// queueCapacity bounds each per-session queue. The subscription callback
// nacks deliveries that do not fit so the broker redelivers them instead of
// blocking its delivery goroutine.
const queueCapacity = 256

type (
	// Sessions owns the process-wide per-session state: the local queues fed
	// by subscription callbacks and the live subscription handles. Both maps
	// support concurrent insertion (new chat turns) and lookup (callback
	// dispatch); entries are removed only by the relay loop that owns them,
	// on terminal transition.
	Sessions struct {
		broker Broker
		topic  string

		mu     sync.Mutex
		queues map[string]*queue
		subs   map[string]Subscription
	}

	// queue is the thread-safe blocking structure shared between a session's
	// subscription callback and its relay loop.
	queue struct {
		entries chan *entry
	}

	// entry wraps one decoded envelope together with the identifiers it was
	// delivered under.
	entry struct {
		env       *Envelope
		sessionID string
		requestID string
	}
)

// NewSessions constructs the session registry for the given broker and topic.
func NewSessions(broker Broker, topic string) *Sessions {
	return &Sessions{
		broker: broker,
		topic:  topic,
		queues: make(map[string]*queue),
		subs:   make(map[string]Subscription),
	}
}

// Queue returns the session's local queue, creating it on first use. Queues
// persist across turns; only Release removes them.
func (s *Sessions) Queue(sessionID string) *queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[sessionID]
	if !ok {
		q = &queue{entries: make(chan *entry, queueCapacity)}
		s.queues[sessionID] = q
	}
	return q
}

// SubscriptionName derives the deterministic broker subscription name for a
// session. Path separators in session ids would produce invalid names and
// are replaced.
func SubscriptionName(sessionID string) string {
	return "agent-response-" + strings.ReplaceAll(sessionID, "/", "-")
}

// EnsureSubscription ensures a session-scoped subscription exists and starts
// feeding the session queue with envelopes for the given request. Deliveries
// for other sessions or requests (stale turns still draining) are
// acknowledged and dropped without enqueueing. Every delivery is acked;
// undecodable payloads and full queues are nacked for redelivery.
func (s *Sessions) EnsureSubscription(ctx context.Context, sessionID, requestID string) (Subscription, error) {
	q := s.Queue(sessionID)
	spec := SubscriptionSpec{
		Name:   SubscriptionName(sessionID),
		Topic:  s.topic,
		Filter: SessionFilter(sessionID),
	}
	sub, err := s.broker.Subscribe(ctx, spec, func(ctx context.Context, d *Delivery) {
		var env Envelope
		if err := json.Unmarshal(d.Data, &env); err != nil {
			log.Errorf(ctx, err, "relay: drop undecodable message on %s", spec.Name)
			d.Nack()
			return
		}
		if d.Attributes[AttrSessionID] != sessionID || env.RequestID != requestID {
			// Stale or foreign message: with an unfiltered fallback
			// subscription this is the only isolation boundary.
			d.Ack()
			return
		}
		select {
		case q.entries <- &entry{env: &env, sessionID: sessionID, requestID: requestID}:
			d.Ack()
		default:
			d.Nack()
		}
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.subs[sessionID] = sub
	s.mu.Unlock()
	if !sub.Filtered() {
		log.Warnf(ctx, "relay: subscription %s is unfiltered; relying on local session/request filtering", spec.Name)
	}
	return sub, nil
}

// Release tears down the session's subscription and queue after a terminal
// transition. The pull is canceled with a bounded wait and teardown errors
// are swallowed; remaining queue entries are drained and discarded.
func (s *Sessions) Release(ctx context.Context, sessionID string) {
	s.mu.Lock()
	sub := s.subs[sessionID]
	q := s.queues[sessionID]
	delete(s.subs, sessionID)
	delete(s.queues, sessionID)
	s.mu.Unlock()

	if sub != nil {
		if err := sub.Unsubscribe(ctx); err != nil {
			log.Debugf(ctx, "relay: unsubscribe %s: %v", SubscriptionName(sessionID), err)
		}
	}
	if q != nil {
		q.drain()
	}
}

// pop waits up to wait for the next entry. The second result is false when
// the wait elapsed with nothing queued (one idle tick).
func (q *queue) pop(wait time.Duration) (*entry, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case e := <-q.entries:
		return e, true
	case <-timer.C:
		return nil, false
	}
}

// drain discards everything currently queued.
func (q *queue) drain() {
	for {
		select {
		case <-q.entries:
		default:
			return
		}
	}
}
