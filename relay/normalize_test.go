package relay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/concierge/upstream"
)

func TestNormalizeTypedEvent(t *testing.T) {
	ev := &upstream.Event{Content: &upstream.Content{Parts: []upstream.Part{
		{Text: "Searching "},
		{Text: "internal reasoning", Thought: true},
		{Text: "for flights."},
		{FunctionCall: &upstream.FunctionCall{Name: "flight_search", Args: map[string]any{"origin": "SEA"}}},
	}}}

	got := Normalize(ev)
	require.NotNil(t, got)
	require.Equal(t, "Searching for flights.", got.Text)
	require.NotNil(t, got.FunctionCall)
	require.Equal(t, "flight_search", got.FunctionCall.Name)
	require.Equal(t, map[string]any{"origin": "SEA"}, got.FunctionCall.Args)
	require.Nil(t, got.FunctionResponse)
}

func TestNormalizeMapEventCamelCase(t *testing.T) {
	ev := map[string]any{"content": map[string]any{"parts": []any{
		map[string]any{"functionResponse": map[string]any{
			"name":     "hotel_search",
			"response": map[string]any{"hotels": []any{}},
		}},
	}}}

	got := Normalize(ev)
	require.NotNil(t, got)
	require.NotNil(t, got.FunctionResponse)
	require.Equal(t, "hotel_search", got.FunctionResponse.Name)
}

func TestNormalizeMapEventSnakeCase(t *testing.T) {
	ev := map[string]any{"content": map[string]any{"parts": []any{
		map[string]any{"function_call": map[string]any{
			"name": "transfer_to_agent",
			"args": map[string]any{"agent_name": "hotel_agent"},
		}},
	}}}

	got := Normalize(ev)
	require.NotNil(t, got)
	require.NotNil(t, got.FunctionCall)
	require.Equal(t, "transfer_to_agent", got.FunctionCall.Name)
	require.Equal(t, "hotel_agent", got.FunctionCall.Args["agent_name"])
}

func TestNormalizeMissingContent(t *testing.T) {
	require.Nil(t, Normalize(map[string]any{"usage_metadata": map[string]any{}}))
	require.Nil(t, Normalize(&upstream.Event{}))
	require.Nil(t, Normalize((*upstream.Event)(nil)))
	require.Nil(t, Normalize(nil))
	require.Nil(t, Normalize(42))
}

func TestNormalizeEmptyParts(t *testing.T) {
	require.Nil(t, Normalize(map[string]any{"content": map[string]any{"parts": []any{}}}))
	require.Nil(t, Normalize(&upstream.Event{Content: &upstream.Content{}}))
}

func TestNormalizeDefaultsMissingToolName(t *testing.T) {
	ev := map[string]any{"content": map[string]any{"parts": []any{
		map[string]any{"functionCall": map[string]any{"args": map[string]any{}}},
	}}}

	got := Normalize(ev)
	require.NotNil(t, got)
	require.Equal(t, "unknown", got.FunctionCall.Name)
}

func TestNormalizeThoughtOnlyEventHasBlankText(t *testing.T) {
	ev := map[string]any{"content": map[string]any{"parts": []any{
		map[string]any{"text": "thinking...", "thought": true},
	}}}

	got := Normalize(ev)
	require.NotNil(t, got)
	require.Empty(t, got.Text)
}

func TestEventDict(t *testing.T) {
	m := map[string]any{"content": "x"}
	require.Equal(t, m, EventDict(m))
	require.Nil(t, EventDict(nil))

	typed := EventDict(&upstream.Event{Content: &upstream.Content{Parts: []upstream.Part{{Text: "hi"}}}})
	require.Contains(t, typed, "content")
}
