package relay

import (
	"fmt"
	"strings"
)

// Filter matches message attributes against a single equality condition. It
// mirrors the broker-side filter grammar `attributes.<key>="<value>"` used by
// hosted pub/sub services; anything richer is rejected so that callers fall
// back to unfiltered subscriptions exactly where a hosted broker would.
type Filter struct {
	Key   string
	Value string
}

// SessionFilter returns the filter expression restricting delivery to one
// session's messages.
func SessionFilter(sessionID string) string {
	return fmt.Sprintf("attributes.%s=%q", AttrSessionID, sessionID)
}

// ParseFilter compiles a filter expression. An empty expression yields a nil
// filter (match everything). Unsupported syntax returns an error; callers
// treat that as "filtered creation failed" and create the subscription
// unfiltered.
func ParseFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	rest, ok := strings.CutPrefix(expr, "attributes.")
	if !ok {
		return nil, fmt.Errorf("unsupported filter %q: must start with \"attributes.\"", expr)
	}
	key, val, ok := strings.Cut(rest, "=")
	if !ok {
		return nil, fmt.Errorf("unsupported filter %q: missing \"=\"", expr)
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)
	if key == "" || strings.ContainsAny(key, " \t\"") {
		return nil, fmt.Errorf("unsupported filter %q: invalid attribute key", expr)
	}
	if len(val) < 2 || val[0] != '"' || val[len(val)-1] != '"' {
		return nil, fmt.Errorf("unsupported filter %q: value must be double-quoted", expr)
	}
	val = val[1 : len(val)-1]
	if strings.Contains(val, `"`) {
		return nil, fmt.Errorf("unsupported filter %q: embedded quote in value", expr)
	}
	return &Filter{Key: key, Value: val}, nil
}

// Match reports whether the attributes satisfy the filter. A nil filter
// matches everything.
func (f *Filter) Match(attrs map[string]string) bool {
	if f == nil {
		return true
	}
	return attrs[f.Key] == f.Value
}
