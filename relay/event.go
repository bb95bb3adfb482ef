// Package relay bridges the pull-based upstream agent stream to a push-based
// caller stream through a publish/subscribe broker. One chat turn flows
// through four stages: the upstream worker consumes the agent's streaming
// query and publishes normalized envelopes onto a shared topic, the broker
// delivers them to a session-scoped subscription, the subscription callback
// feeds a per-session queue, and the relay loop dequeues and re-renders them
// as caller-visible stream events until a terminal marker or timeout.
package relay

import (
	"strconv"
	"time"
)

// Envelope message types carried over the broker.
const (
	// TypeAgentEvent wraps one normalized upstream response event.
	TypeAgentEvent = "agent_event"
	// TypeDone is the terminal success marker for a turn.
	TypeDone = "done"
	// TypeError is the terminal failure marker for a turn.
	TypeError = "error"
)

// Caller-visible stream event types.
const (
	StreamDebug        = "debug"
	StreamContent      = "content"
	StreamToolCall     = "tool_call"
	StreamToolResponse = "tool_response"
	StreamDone         = "done"
	StreamError        = "error"
	StreamHeartbeat    = "heartbeat"
)

// Attribute keys attached to every published broker message.
const (
	AttrSessionID = "session_id"
	AttrRequestID = "request_id"
)

type (
	// Turn is one caller-initiated exchange: a stable session, a unique
	// request derived from it, and the upstream deployment to query.
	// Immutable once admitted.
	Turn struct {
		SessionID string
		RequestID string
		UserID    string
		Message   string
		// Resource identifies the upstream agent deployment.
		Resource string
	}

	// Envelope is the unit published onto the broker for a turn. Exactly one
	// of the terminal types (done, error) ends a request; agent_event
	// envelopes carry the raw upstream event plus its extracted content.
	Envelope struct {
		Type       string `json:"type"`
		RequestID  string `json:"request_id"`
		EventCount int    `json:"event_count,omitempty"`
		// Event is the raw upstream event in map form, kept for diagnosis.
		Event map[string]any `json:"event,omitempty"`
		// Content is the normalizer's extraction, nil when the upstream
		// event carried no displayable payload.
		Content *Extract `json:"content,omitempty"`
		// ContentReceived reports on done envelopes whether any non-blank
		// text was observed during the turn.
		ContentReceived bool `json:"content_received,omitempty"`
		// Message carries the failure description on error envelopes.
		Message string `json:"message,omitempty"`
	}

	// Extract is the normalized content of one upstream event: the joined
	// non-thought text plus at most one function call and one function
	// response.
	Extract struct {
		Text             string    `json:"text,omitempty"`
		FunctionCall     *ToolCall `json:"function_call,omitempty"`
		FunctionResponse *ToolResp `json:"function_response,omitempty"`
	}

	// ToolCall describes a tool the upstream agent invoked.
	ToolCall struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args,omitempty"`
	}

	// ToolResp carries the result of a tool invocation.
	ToolResp struct {
		Name     string         `json:"name"`
		Response map[string]any `json:"response,omitempty"`
	}

	// StreamEvent is one caller-visible event, serialized as a single
	// newline-delimited JSON object on the chat response stream.
	StreamEvent struct {
		Type     string         `json:"type"`
		Content  string         `json:"content,omitempty"`
		Message  string         `json:"message,omitempty"`
		ToolName string         `json:"tool_name,omitempty"`
		Args     map[string]any `json:"args,omitempty"`
		Response map[string]any `json:"response,omitempty"`
		// ContentReceived is set on done events only.
		ContentReceived *bool `json:"content_received,omitempty"`
	}
)

// NewRequestID derives a per-turn request identifier from the session and the
// submission time. Uniqueness within a session holds as long as two turns are
// not admitted in the same millisecond, which the per-session admission
// limiter guarantees.
func NewRequestID(sessionID string, now time.Time) string {
	return sessionID + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}
