package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// capturingBroker records the subscription callback so tests can drive
// deliveries directly.
type capturingBroker struct {
	spec SubscriptionSpec
	cb   Callback
	sub  *capturingSub
}

type capturingSub struct {
	filtered     bool
	unsubscribed bool
}

func (b *capturingBroker) EnsureTopic(ctx context.Context, topic string) error { return nil }

func (b *capturingBroker) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	return nil
}

func (b *capturingBroker) Subscribe(ctx context.Context, spec SubscriptionSpec, cb Callback) (Subscription, error) {
	b.spec = spec
	b.cb = cb
	if b.sub == nil {
		b.sub = &capturingSub{filtered: true}
	}
	return b.sub, nil
}

func (s *capturingSub) Unsubscribe(ctx context.Context) error {
	s.unsubscribed = true
	return nil
}

func (s *capturingSub) Filtered() bool { return s.filtered }

// deliver hands an envelope to the captured callback the way the broker's
// delivery goroutine would, tracking ack and nack.
func deliver(t *testing.T, cb Callback, env Envelope, sessionID string) (acked, nacked bool) {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	d := NewDelivery(data, map[string]string{AttrSessionID: sessionID}, func() { acked = true }, func() { nacked = true })
	cb(context.Background(), d)
	return
}

func TestSubscriptionName(t *testing.T) {
	require.Equal(t, "agent-response-abc", SubscriptionName("abc"))
	require.Equal(t, "agent-response-a-b-c", SubscriptionName("a/b/c"))
}

func TestEnsureSubscriptionSpec(t *testing.T) {
	broker := &capturingBroker{}
	s := NewSessions(broker, "topic-a")

	sub, err := s.EnsureSubscription(context.Background(), "sess-1", "sess-1-1")
	require.NoError(t, err)
	require.True(t, sub.Filtered())
	require.Equal(t, "agent-response-sess-1", broker.spec.Name)
	require.Equal(t, "topic-a", broker.spec.Topic)
	require.Equal(t, `attributes.session_id="sess-1"`, broker.spec.Filter)
}

func TestSubscriptionCallbackEnqueuesMatching(t *testing.T) {
	broker := &capturingBroker{}
	s := NewSessions(broker, "topic-a")
	_, err := s.EnsureSubscription(context.Background(), "sess-1", "sess-1-1")
	require.NoError(t, err)

	acked, nacked := deliver(t, broker.cb, Envelope{Type: TypeDone, RequestID: "sess-1-1"}, "sess-1")
	require.True(t, acked)
	require.False(t, nacked)

	e, ok := s.Queue("sess-1").pop(time.Second)
	require.True(t, ok)
	require.Equal(t, TypeDone, e.env.Type)
	require.Equal(t, "sess-1", e.sessionID)
	require.Equal(t, "sess-1-1", e.requestID)
}

func TestSubscriptionCallbackDropsForeignSession(t *testing.T) {
	broker := &capturingBroker{}
	s := NewSessions(broker, "topic-a")
	_, err := s.EnsureSubscription(context.Background(), "sess-1", "sess-1-1")
	require.NoError(t, err)

	acked, nacked := deliver(t, broker.cb, Envelope{Type: TypeDone, RequestID: "sess-2-1"}, "sess-2")
	require.True(t, acked)
	require.False(t, nacked)

	_, ok := s.Queue("sess-1").pop(time.Millisecond)
	require.False(t, ok)
}

func TestSubscriptionCallbackDropsStaleRequest(t *testing.T) {
	broker := &capturingBroker{}
	s := NewSessions(broker, "topic-a")
	_, err := s.EnsureSubscription(context.Background(), "sess-1", "sess-1-2")
	require.NoError(t, err)

	acked, _ := deliver(t, broker.cb, Envelope{Type: TypeDone, RequestID: "sess-1-1"}, "sess-1")
	require.True(t, acked)

	_, ok := s.Queue("sess-1").pop(time.Millisecond)
	require.False(t, ok)
}

func TestSubscriptionCallbackNacksUndecodable(t *testing.T) {
	broker := &capturingBroker{}
	s := NewSessions(broker, "topic-a")
	_, err := s.EnsureSubscription(context.Background(), "sess-1", "sess-1-1")
	require.NoError(t, err)

	var acked, nacked bool
	d := NewDelivery([]byte("{not json"), map[string]string{AttrSessionID: "sess-1"}, func() { acked = true }, func() { nacked = true })
	broker.cb(context.Background(), d)
	require.False(t, acked)
	require.True(t, nacked)
}

func TestSubscriptionCallbackNacksWhenQueueFull(t *testing.T) {
	broker := &capturingBroker{}
	s := NewSessions(broker, "topic-a")
	_, err := s.EnsureSubscription(context.Background(), "sess-1", "sess-1-1")
	require.NoError(t, err)

	for i := 0; i < queueCapacity; i++ {
		acked, _ := deliver(t, broker.cb, Envelope{Type: TypeAgentEvent, RequestID: "sess-1-1"}, "sess-1")
		require.True(t, acked)
	}
	acked, nacked := deliver(t, broker.cb, Envelope{Type: TypeAgentEvent, RequestID: "sess-1-1"}, "sess-1")
	require.False(t, acked)
	require.True(t, nacked)
}

func TestReleaseTearsDownSubscriptionAndQueue(t *testing.T) {
	broker := &capturingBroker{}
	s := NewSessions(broker, "topic-a")
	_, err := s.EnsureSubscription(context.Background(), "sess-1", "sess-1-1")
	require.NoError(t, err)
	deliver(t, broker.cb, Envelope{Type: TypeAgentEvent, RequestID: "sess-1-1"}, "sess-1")

	s.Release(context.Background(), "sess-1")
	require.True(t, broker.sub.unsubscribed)

	// The queue was removed; a fresh one starts empty.
	_, ok := s.Queue("sess-1").pop(time.Millisecond)
	require.False(t, ok)
}

func TestQueuePersistsAcrossCalls(t *testing.T) {
	s := NewSessions(&capturingBroker{}, "topic-a")
	q1 := s.Queue("sess-1")
	q2 := s.Queue("sess-1")
	require.Same(t, q1, q2)
	require.NotSame(t, q1, s.Queue("sess-2"))
}
