// Package chatui implements the browser chat backend: it admits chat turns,
// proxies them to the hosted agent runtime through the relay pipeline, and
// serves the session, health and static UI endpoints.
package chatui

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goahttp "goa.design/goa/v3/http"
	"golang.org/x/time/rate"

	"example.com/concierge/relay"
	"example.com/concierge/upstream"
)

type (
	// Options configures the chat backend.
	Options struct {
		// Runtime is the upstream agent runtime. Required.
		Runtime upstream.Runtime
		// Broker carries relay envelopes between workers and loops. Required.
		Broker relay.Broker
		// Topic is the shared relay topic. Required.
		Topic string
		// Project and Location are the default deployment coordinates used
		// when requests do not override them.
		Project  string
		Location string
		// StaticDir serves the bundled web UI when non-empty.
		StaticDir string
		// ChatRate and ChatBurst bound per-session chat admission. Zero
		// values use one turn per second with a burst of five.
		ChatRate  rate.Limit
		ChatBurst int
	}

	// Server is the chat backend HTTP service.
	Server struct {
		runtime   upstream.Runtime
		broker    relay.Broker
		topic     string
		project   string
		location  string
		staticDir string

		sessions *relay.Sessions
		loop     *relay.Loop
		worker   *relay.Worker

		chatRate  rate.Limit
		chatBurst int

		mu       sync.Mutex
		limiters map[string]*rate.Limiter
	}
)

// New constructs the chat backend service.
func New(opts Options) *Server {
	sessions := relay.NewSessions(opts.Broker, opts.Topic)
	chatRate := opts.ChatRate
	if chatRate == 0 {
		chatRate = rate.Every(time.Second)
	}
	chatBurst := opts.ChatBurst
	if chatBurst == 0 {
		chatBurst = 5
	}
	return &Server{
		runtime:   opts.Runtime,
		broker:    opts.Broker,
		topic:     opts.Topic,
		project:   opts.Project,
		location:  opts.Location,
		staticDir: opts.StaticDir,
		sessions:  sessions,
		loop:      &relay.Loop{Sessions: sessions},
		worker:    &relay.Worker{Runtime: opts.Runtime, Broker: opts.Broker, Topic: opts.Topic},
		chatRate:  chatRate,
		chatBurst: chatBurst,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Mount registers the service routes on the muxer.
func (s *Server) Mount(mux goahttp.Muxer) {
	mux.Handle("POST", "/api/chat", s.handleChat)
	mux.Handle("POST", "/api/session", s.handleSession)
	mux.Handle("GET", "/api/health", s.handleHealth)
	mux.Handle("GET", "/api/logs", s.handleLogs)
	if s.staticDir != "" {
		fs := http.FileServer(http.Dir(s.staticDir))
		mux.Handle("GET", "/", fs.ServeHTTP)
		mux.Handle("GET", "/{*filepath}", fs.ServeHTTP)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"project":  s.project,
		"location": s.location,
	})
}

// handleLogs is a stub: runtime log queries require a cloud logging client
// this deployment does not carry. The bundled UI treats 501 as "no logs".
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotImplemented, "log queries are not available on this server")
}

// limiter returns the session's admission limiter, creating it on first use.
func (s *Server) limiter(sessionID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[sessionID]
	if !ok {
		l = rate.NewLimiter(s.chatRate, s.chatBurst)
		s.limiters[sessionID] = l
	}
	return l
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encode errors mean the client went away; nothing useful to do.
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
