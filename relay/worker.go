package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"goa.design/clue/log"

	"example.com/concierge/upstream"
)

// drainDelay gives in-flight publishes time to land ahead of the completion
// marker.
const drainDelay = 500 * time.Millisecond

// Worker consumes one streaming upstream query per chat turn and republishes
// each event onto the broker. It shares no memory with the relay loop; the
// broker is the only channel between them.
type Worker struct {
	Runtime upstream.Runtime
	Broker  Broker
	Topic   string

	// Delay overrides drainDelay when positive. Tests compress it.
	Delay time.Duration
}

// Run executes the turn's upstream query to completion. It is designed to be
// spawned as a fire-and-forget goroutine: the HTTP handler that admitted the
// turn never blocks on it, and it may outlive a relay loop that timed out
// (the leak is bounded by upstream stream completion; cancellation is
// deliberately not propagated). Failures publishing individual events are
// logged and dropped; only a failure of the upstream query itself terminates
// the turn with an error marker. Panics are recovered and surfaced the same
// way so a worker crash cannot take down the process.
func (w *Worker) Run(ctx context.Context, turn Turn) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf(ctx, fmt.Errorf("%v", r), "relay: worker panic for request %s", turn.RequestID)
			w.publishError(ctx, turn, fmt.Sprintf("internal error: %v", r))
		}
	}()

	stream, err := w.Runtime.StreamQuery(ctx, upstream.Query{
		Resource:  turn.Resource,
		UserID:    turn.UserID,
		SessionID: turn.SessionID,
		Message:   turn.Message,
	})
	if err != nil {
		log.Errorf(ctx, err, "relay: open upstream stream for request %s", turn.RequestID)
		w.publishError(ctx, turn, err.Error())
		return
	}
	defer stream.Close()

	var (
		eventCount      int
		contentReceived bool
	)
	for {
		event, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			log.Errorf(ctx, err, "relay: upstream stream failed for request %s", turn.RequestID)
			w.publishError(ctx, turn, err.Error())
			return
		}
		if event == nil {
			continue
		}
		eventCount++

		content := Normalize(event)
		if content == nil {
			log.Debugf(ctx, "relay: event #%d carries no content", eventCount)
		}
		w.publish(ctx, turn, &Envelope{
			Type:       TypeAgentEvent,
			RequestID:  turn.RequestID,
			EventCount: eventCount,
			Event:      EventDict(event),
			Content:    content,
		})
		if content != nil && strings.TrimSpace(content.Text) != "" {
			contentReceived = true
		}
	}

	delay := w.Delay
	if delay <= 0 {
		delay = drainDelay
	}
	time.Sleep(delay)

	w.publish(ctx, turn, &Envelope{
		Type:            TypeDone,
		RequestID:       turn.RequestID,
		EventCount:      eventCount,
		ContentReceived: contentReceived,
	})
}

// publish sends one envelope, logging and dropping on failure: a lost event
// is preferable to a crashed turn.
func (w *Worker) publish(ctx context.Context, turn Turn, env *Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Errorf(ctx, err, "relay: encode envelope #%d for request %s", env.EventCount, turn.RequestID)
		return
	}
	attrs := map[string]string{
		AttrSessionID: turn.SessionID,
		AttrRequestID: turn.RequestID,
	}
	if err := w.Broker.Publish(ctx, w.Topic, data, attrs); err != nil {
		log.Errorf(ctx, err, "relay: publish %s envelope #%d for request %s", env.Type, env.EventCount, turn.RequestID)
	}
}

func (w *Worker) publishError(ctx context.Context, turn Turn, msg string) {
	w.publish(ctx, turn, &Envelope{
		Type:      TypeError,
		RequestID: turn.RequestID,
		Message:   msg,
	})
}
