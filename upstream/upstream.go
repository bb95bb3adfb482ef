// Package upstream defines the boundary with the hosted agent runtime. The
// relay consumes the runtime as an opaque streaming query interface: one query
// per chat turn yielding a finite sequence of response events. Events may be
// fully typed (Event) or loosely typed maps decoded straight from the wire;
// the relay normalizer accepts both shapes.
package upstream

import (
	"context"
	"fmt"
)

type (
	// Runtime is the hosted agent runtime consumed by the chat backend.
	// Implementations live in subpackages (see engine for the HTTP client);
	// tests provide fakes.
	Runtime interface {
		// StreamQuery opens a streaming query for one chat turn. The returned
		// stream is one-shot, finite and not restartable; a failure opening or
		// reading the stream is fatal to the turn.
		StreamQuery(ctx context.Context, q Query) (EventStream, error)

		// CreateSession creates a new conversation session on the runtime
		// identified by resource and returns its identifier.
		CreateSession(ctx context.Context, resource, userID string) (Session, error)
	}

	// Query identifies one chat turn against a deployed agent.
	Query struct {
		// Resource is the fully qualified deployment name, e.g.
		// "projects/p/locations/l/reasoningEngines/123".
		Resource string
		// UserID identifies the end user on whose behalf the query runs.
		UserID string
		// SessionID scopes the query to an existing conversation session.
		SessionID string
		// Message is the user's message text.
		Message string
	}

	// Session describes a conversation session created on the runtime.
	Session struct {
		ID     string
		UserID string
	}

	// EventStream yields response events for a single query. Next returns
	// io.EOF once the upstream stream is exhausted. Events are either *Event
	// or map[string]any depending on how much structure the transport
	// preserved.
	EventStream interface {
		Next() (any, error)
		Close() error
	}

	// Event is the structured response event shape.
	Event struct {
		Author  string   `json:"author,omitempty"`
		Content *Content `json:"content,omitempty"`
	}

	// Content carries the displayable parts of a response event.
	Content struct {
		Role  string `json:"role,omitempty"`
		Parts []Part `json:"parts,omitempty"`
	}

	// Part is a single content fragment: text, a tool invocation or a tool
	// result. Thought marks model-internal reasoning text that is never
	// surfaced to callers.
	Part struct {
		Text             string            `json:"text,omitempty"`
		Thought          bool              `json:"thought,omitempty"`
		FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
		FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
	}

	// FunctionCall describes a tool the agent invoked.
	FunctionCall struct {
		Name string         `json:"name,omitempty"`
		Args map[string]any `json:"args,omitempty"`
	}

	// FunctionResponse carries the result of a tool invocation.
	FunctionResponse struct {
		Name     string         `json:"name,omitempty"`
		Response map[string]any `json:"response,omitempty"`
	}
)

// ResourceName expands a bare numeric engine ID into a fully qualified
// reasoning-engine resource name. IDs that are already qualified (anything
// non-numeric) pass through unchanged.
func ResourceName(project, location, id string) string {
	if id == "" {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	return fmt.Sprintf("projects/%s/locations/%s/reasoningEngines/%s", project, location, id)
}
