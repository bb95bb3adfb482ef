package relay

import (
	"encoding/json"

	"example.com/concierge/upstream"
)

// Normalize converts one upstream response event into its extracted content.
// Events arrive in two shapes: the typed *upstream.Event and the loosely
// typed map form decoded straight from the wire (which may spell function
// fields either "functionCall"/"functionResponse" or
// "function_call"/"function_response"). A nil result means the event carries
// no displayable payload (control or administrative event) and must be
// treated as a no-op, never as an error.
//
// Text fragments from multiple parts are concatenated in encounter order with
// no separator, skipping parts flagged as model-internal thoughts. At most
// one function call and one function response are extracted per event; when
// an event carries several, the last wins (upstream emits at most one of each
// in practice). Missing tool names default to "unknown".
func Normalize(event any) *Extract {
	switch ev := event.(type) {
	case *upstream.Event:
		if ev == nil || ev.Content == nil {
			return nil
		}
		return normalizeTyped(ev.Content)
	case upstream.Event:
		if ev.Content == nil {
			return nil
		}
		return normalizeTyped(ev.Content)
	case map[string]any:
		return normalizeMap(ev)
	default:
		return nil
	}
}

func normalizeTyped(content *upstream.Content) *Extract {
	if len(content.Parts) == 0 {
		return nil
	}
	var out Extract
	for _, part := range content.Parts {
		if part.Text != "" && !part.Thought {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			out.FunctionCall = &ToolCall{
				Name: defaultName(part.FunctionCall.Name),
				Args: part.FunctionCall.Args,
			}
		}
		if part.FunctionResponse != nil {
			out.FunctionResponse = &ToolResp{
				Name:     defaultName(part.FunctionResponse.Name),
				Response: part.FunctionResponse.Response,
			}
		}
	}
	return &out
}

func normalizeMap(event map[string]any) *Extract {
	content, ok := event["content"].(map[string]any)
	if !ok {
		return nil
	}
	parts, ok := content["parts"].([]any)
	if !ok || len(parts) == 0 {
		return nil
	}
	var out Extract
	for _, p := range parts {
		part, ok := p.(map[string]any)
		if !ok {
			continue
		}
		text, _ := part["text"].(string)
		thought, _ := part["thought"].(bool)
		if text != "" && !thought {
			out.Text += text
		}
		if fc := mapField(part, "functionCall", "function_call"); fc != nil {
			name, _ := fc["name"].(string)
			args, _ := fc["args"].(map[string]any)
			out.FunctionCall = &ToolCall{Name: defaultName(name), Args: args}
		}
		if fr := mapField(part, "functionResponse", "function_response"); fr != nil {
			name, _ := fr["name"].(string)
			resp, _ := fr["response"].(map[string]any)
			out.FunctionResponse = &ToolResp{Name: defaultName(name), Response: resp}
		}
	}
	return &out
}

// mapField returns the first of the named keys holding a map value. Upstream
// serializations disagree on camelCase vs snake_case for function fields.
func mapField(part map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if m, ok := part[k].(map[string]any); ok {
			return m
		}
	}
	return nil
}

func defaultName(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}

// EventDict renders an upstream event as a plain map for the envelope's raw
// event field. Map events pass through; typed events round-trip through JSON.
// Events that cannot be represented collapse to their string form so the
// envelope always carries something inspectable.
func EventDict(event any) map[string]any {
	switch ev := event.(type) {
	case map[string]any:
		return ev
	case nil:
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return map[string]any{"str": toString(event)}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"str": string(data)}
	}
	return out
}

func toString(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "unrepresentable event"
	}
	return string(data)
}
