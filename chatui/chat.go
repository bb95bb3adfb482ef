package chatui

import (
	"context"
	"net/http"
	"time"

	"goa.design/clue/log"

	"example.com/concierge/relay"
	"example.com/concierge/upstream"
)

// chatRequest is the POST /api/chat body. Project and location fall back to
// the server defaults; the remaining fields are required.
type chatRequest struct {
	ProjectID  string `json:"projectId"`
	Location   string `json:"location"`
	ResourceID string `json:"resourceId"`
	UserID     string `json:"userId"`
	SessionID  string `json:"sessionId"`
	Message    string `json:"message"`
}

// handleChat admits one chat turn: it validates the request, spawns the
// upstream worker and relays the turn's events back as newline-delimited
// JSON until a terminal event or timeout. The worker runs on a context
// detached from the request so a disconnecting caller never interrupts the
// upstream query.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ResourceID == "" || req.UserID == "" || req.SessionID == "" || req.Message == "" {
		respondError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}
	if !s.limiter(req.SessionID).Allow() {
		respondError(w, http.StatusTooManyRequests, "too many chat requests for this session")
		return
	}

	project := req.ProjectID
	if project == "" {
		project = s.project
	}
	location := req.Location
	if location == "" {
		location = s.location
	}

	ctx := r.Context()
	turn := relay.Turn{
		SessionID: req.SessionID,
		RequestID: relay.NewRequestID(req.SessionID, time.Now()),
		UserID:    req.UserID,
		Message:   req.Message,
		Resource:  upstream.ResourceName(project, location, req.ResourceID),
	}
	log.Printf(ctx, "chat turn admitted: session=%s request=%s", turn.SessionID, turn.RequestID)

	go s.worker.Run(context.WithoutCancel(ctx), turn)

	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	out := newStreamWriter(w)
	if err := s.loop.Run(ctx, turn, out); err != nil {
		log.Errorf(ctx, err, "chatui: relay loop ended for request %s", turn.RequestID)
	}
}
