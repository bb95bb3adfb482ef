package relay

import "context"

type (
	// Broker is the publish/subscribe transport between the upstream worker
	// and the relay loop. Delivery is at-least-once and not guaranteed
	// in-order across redeliveries; consumers must key off message content,
	// never delivery order, for control flow.
	Broker interface {
		// EnsureTopic creates the topic if it does not exist. Idempotent;
		// concurrent creators and pre-existing topics are not errors.
		EnsureTopic(ctx context.Context, topic string) error

		// Publish sends data with the given delivery attributes and blocks
		// until the broker acknowledges, bounded by the implementation's
		// publish timeout. Callers treat failures as a dropped message, not
		// a fatal condition.
		Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error

		// Subscribe ensures the named subscription exists and starts
		// delivering messages to cb on the broker's delivery goroutine(s).
		// The callback must Ack or Nack every delivery.
		Subscribe(ctx context.Context, spec SubscriptionSpec, cb Callback) (Subscription, error)
	}

	// SubscriptionSpec names a durable subscription on a topic. Filter is an
	// optional attribute-match expression (see ParseFilter); when the broker
	// cannot honor it, the subscription is created unfiltered and the
	// subscriber's own filtering becomes the correctness boundary.
	SubscriptionSpec struct {
		Name   string
		Topic  string
		Filter string
	}

	// Subscription is a live message pull that can be torn down.
	Subscription interface {
		// Unsubscribe cancels the pull and waits for teardown, bounded by
		// the implementation (5s). Teardown errors are swallowed; the
		// subscription is unusable afterwards either way.
		Unsubscribe(ctx context.Context) error

		// Filtered reports whether the broker honored the requested filter.
		// False signals the degraded unfiltered fallback.
		Filtered() bool
	}

	// Delivery is one message handed to a subscription callback.
	Delivery struct {
		Data       []byte
		Attributes map[string]string

		ack  func()
		nack func()
	}

	// Callback processes one delivery. It runs on the broker's delivery
	// goroutine, concurrently with the subscription's owner.
	Callback func(ctx context.Context, d *Delivery)
)

// NewDelivery constructs a Delivery with explicit ack/nack hooks. Broker
// implementations and tests use this; either hook may be nil.
func NewDelivery(data []byte, attrs map[string]string, ack, nack func()) *Delivery {
	return &Delivery{Data: data, Attributes: attrs, ack: ack, nack: nack}
}

// Ack acknowledges successful processing of the delivery.
func (d *Delivery) Ack() {
	if d.ack != nil {
		d.ack()
	}
}

// Nack signals a processing failure and requests redelivery.
func (d *Delivery) Nack() {
	if d.nack != nil {
		d.nack()
	}
}
