package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"goa.design/clue/log"
)

// Loop defaults. One idle tick is one popWait that yielded nothing; the turn
// times out after maxIdleTicks consecutive idle ticks with a keepalive every
// heartbeatTicks.
const (
	defaultPopWait  = time.Second
	heartbeatTicks  = 10
	maxIdleTicks    = 300
	transferToAgent = "transfer_to_agent"
)

type (
	// Stream receives caller-visible events for one turn. The chat backend
	// implements it over a flushed ND-JSON HTTP response; tests collect
	// events in memory. Send errors end the turn (the caller is gone).
	Stream interface {
		Send(ctx context.Context, event StreamEvent) error
	}

	// Loop is the foreground consumer for chat turns: it subscribes to the
	// session's channel, pulls envelopes from the local queue and translates
	// them into caller-visible stream events, terminating on completion,
	// error or timeout.
	Loop struct {
		Sessions *Sessions

		// PopWait overrides the per-pop wait when positive. Tests compress
		// it; the idle-tick counts are fixed by the wire contract.
		PopWait time.Duration
	}
)

// Run serves one turn to completion. The upstream worker for the turn must
// have been started by the caller; Run only consumes. It always releases the
// session's subscription and drains its queue before returning, and emits
// exactly one terminal stream event (done or error) unless the caller's
// stream itself fails first.
func (l *Loop) Run(ctx context.Context, turn Turn, out Stream) error {
	if err := out.Send(ctx, StreamEvent{
		Type:    StreamDebug,
		Message: fmt.Sprintf("streaming started (request %s)", turn.RequestID),
	}); err != nil {
		return err
	}

	sub, err := l.Sessions.EnsureSubscription(ctx, turn.SessionID, turn.RequestID)
	if err != nil {
		_ = out.Send(ctx, StreamEvent{Type: StreamError, Message: err.Error()})
		return fmt.Errorf("ensure subscription: %w", err)
	}
	defer l.Sessions.Release(ctx, turn.SessionID)

	if !sub.Filtered() {
		if err := out.Send(ctx, StreamEvent{
			Type:    StreamDebug,
			Message: "serving from an unfiltered subscription",
		}); err != nil {
			return err
		}
	}

	popWait := l.PopWait
	if popWait <= 0 {
		popWait = defaultPopWait
	}
	q := l.Sessions.Queue(turn.SessionID)

	var (
		contentReceived bool
		idleTicks       int
	)
	for idleTicks < maxIdleTicks {
		e, ok := q.pop(popWait)
		if !ok {
			idleTicks++
			if idleTicks%heartbeatTicks == 0 {
				if err := out.Send(ctx, StreamEvent{Type: StreamHeartbeat}); err != nil {
					return err
				}
			}
			continue
		}
		idleTicks = 0

		switch e.env.Type {
		case TypeAgentEvent:
			if err := l.dispatch(ctx, e.env, &contentReceived, out); err != nil {
				return err
			}
		case TypeDone:
			received := "no"
			if contentReceived {
				received = "yes"
			}
			if err := out.Send(ctx, StreamEvent{
				Type:    StreamDebug,
				Message: fmt.Sprintf("agent response complete (%d events, content: %s)", e.env.EventCount, received),
			}); err != nil {
				return err
			}
			return out.Send(ctx, StreamEvent{Type: StreamDone, ContentReceived: &contentReceived})
		case TypeError:
			msg := e.env.Message
			if msg == "" {
				msg = "Unknown error"
			}
			return out.Send(ctx, StreamEvent{Type: StreamError, Message: msg})
		default:
			log.Debugf(ctx, "relay: ignore envelope type %q for request %s", e.env.Type, turn.RequestID)
		}
	}

	return out.Send(ctx, StreamEvent{
		Type:    StreamError,
		Message: "response timed out (5 minutes)",
	})
}

// dispatch renders one agent_event envelope onto the caller stream.
func (l *Loop) dispatch(ctx context.Context, env *Envelope, contentReceived *bool, out Stream) error {
	if env.Content == nil {
		return out.Send(ctx, StreamEvent{
			Type:    StreamDebug,
			Message: fmt.Sprintf("event #%d carried no displayable content", env.EventCount),
		})
	}

	if text := env.Content.Text; strings.TrimSpace(text) != "" {
		*contentReceived = true
		if err := out.Send(ctx, StreamEvent{Type: StreamContent, Content: text}); err != nil {
			return err
		}
	}

	if call := env.Content.FunctionCall; call != nil {
		if err := out.Send(ctx, StreamEvent{
			Type:     StreamToolCall,
			ToolName: call.Name,
			Args:     call.Args,
		}); err != nil {
			return err
		}
		note := fmt.Sprintf("calling tool: %s", call.Name)
		if call.Name == transferToAgent {
			agent, _ := call.Args["agent_name"].(string)
			if agent == "" {
				agent = "unknown"
			}
			note = fmt.Sprintf("transferring to agent: %s", agent)
		}
		if err := out.Send(ctx, StreamEvent{Type: StreamDebug, Message: note}); err != nil {
			return err
		}
	}

	if resp := env.Content.FunctionResponse; resp != nil {
		if err := out.Send(ctx, StreamEvent{
			Type:     StreamToolResponse,
			ToolName: resp.Name,
			Response: resp.Response,
		}); err != nil {
			return err
		}
		if rendered := renderTicketResponse(resp.Name, resp.Response); rendered != "" {
			*contentReceived = true
			if err := out.Send(ctx, StreamEvent{Type: StreamContent, Content: rendered}); err != nil {
				return err
			}
		}
		if err := out.Send(ctx, StreamEvent{
			Type:    StreamDebug,
			Message: fmt.Sprintf("tool completed: %s", resp.Name),
		}); err != nil {
			return err
		}
	}

	return nil
}
