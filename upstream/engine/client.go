// Package engine implements the upstream.Runtime interface against hosted
// reasoning-engine HTTP endpoints. The transport is plain JSON over HTTP:
// streamQuery responses arrive as a stream of newline-delimited JSON events
// which are decoded into loosely typed maps and handed to the relay
// normalizer as-is.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"example.com/concierge/upstream"
)

type (
	// TokenFunc supplies a bearer token for outbound requests. It is invoked
	// once per request so short-lived credentials can be refreshed by the
	// implementation.
	TokenFunc func(ctx context.Context) (string, error)

	// Options configures the engine client.
	Options struct {
		// BaseURL is the API endpoint, e.g.
		// "https://us-central1-aiplatform.googleapis.com". Required.
		BaseURL string
		// Token supplies bearer tokens. Optional; requests are sent
		// unauthenticated when nil (local emulators, tests).
		Token TokenFunc
		// HTTPClient overrides the default client. Streaming queries disable
		// the client timeout; per-request deadlines come from the context.
		HTTPClient *http.Client
	}

	// Client talks to a hosted agent runtime.
	Client struct {
		base  string
		token TokenFunc
		http  *http.Client
	}

	// eventStream decodes newline-delimited JSON events from a response body.
	eventStream struct {
		body io.ReadCloser
		dec  *json.Decoder
	}
)

// New constructs an engine client. The BaseURL field in opts is required.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("engine base URL is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:  strings.TrimRight(opts.BaseURL, "/"),
		token: opts.Token,
		http:  hc,
	}, nil
}

// StreamQuery opens a streaming query for one chat turn. The returned stream
// yields one map[string]any per upstream event and io.EOF on exhaustion.
func (c *Client) StreamQuery(ctx context.Context, q upstream.Query) (upstream.EventStream, error) {
	body := map[string]any{
		"class_method": "stream_query",
		"input": map[string]any{
			"user_id":    q.UserID,
			"session_id": q.SessionID,
			"message":    q.Message,
		},
	}
	resp, err := c.post(ctx, q.Resource+":streamQuery", body)
	if err != nil {
		return nil, fmt.Errorf("stream query: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("stream query: %s", readError(resp))
	}
	return &eventStream{body: resp.Body, dec: json.NewDecoder(resp.Body)}, nil
}

// CreateSession creates a new conversation session on the runtime.
func (c *Client) CreateSession(ctx context.Context, resource, userID string) (upstream.Session, error) {
	body := map[string]any{
		"class_method": "create_session",
		"input":        map[string]any{"user_id": userID},
	}
	resp, err := c.post(ctx, resource+":query", body)
	if err != nil {
		return upstream.Session{}, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return upstream.Session{}, fmt.Errorf("create session: %s", readError(resp))
	}
	var out struct {
		Output struct {
			ID     string `json:"id"`
			UserID string `json:"user_id"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return upstream.Session{}, fmt.Errorf("create session: decode response: %w", err)
	}
	if out.Output.ID == "" {
		return upstream.Session{}, errors.New("create session: empty session id in response")
	}
	return upstream.Session{ID: out.Output.ID, UserID: out.Output.UserID}, nil
}

func (c *Client) post(ctx context.Context, path string, body map[string]any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/"+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return c.http.Do(req)
}

// Next returns the next decoded event or io.EOF once the body is exhausted.
func (s *eventStream) Next() (any, error) {
	var event map[string]any
	if err := s.dec.Decode(&event); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

// Close releases the underlying response body. Safe to call after EOF.
func (s *eventStream) Close() error {
	return s.body.Close()
}

// readError extracts a short error description from a non-200 response,
// bounded so a misbehaving endpoint cannot bloat logs.
func readError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, msg)
}

// StaticToken returns a TokenFunc that always yields tok. Useful for tests
// and environments where a long-lived token is provisioned externally.
func StaticToken(tok string) TokenFunc {
	return func(context.Context) (string, error) { return tok, nil }
}
