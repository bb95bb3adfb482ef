package chatui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"example.com/concierge/relay"
)

// streamWriter renders relay stream events as newline-delimited JSON on a
// flushed HTTP response. Safe for concurrent Send calls.
type streamWriter struct {
	mu  sync.Mutex
	w   http.ResponseWriter
	f   http.Flusher
	enc *json.Encoder
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	sw := &streamWriter{w: w}
	sw.enc = json.NewEncoder(w)
	sw.enc.SetEscapeHTML(false)
	if f, ok := w.(http.Flusher); ok {
		sw.f = f
	}
	return sw
}

// Send writes one event followed by a newline and flushes so long-lived
// streams reach the browser promptly.
func (sw *streamWriter) Send(ctx context.Context, event relay.StreamEvent) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if err := sw.enc.Encode(event); err != nil {
		return fmt.Errorf("write stream event: %w", err)
	}
	if sw.f != nil {
		sw.f.Flush()
	}
	return nil
}

// decodeJSON decodes a request body into v, rejecting unknown top-level
// syntax errors early with a bounded reader.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(v)
}
