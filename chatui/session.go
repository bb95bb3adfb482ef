package chatui

import (
	"net/http"

	"github.com/google/uuid"
	"goa.design/clue/log"

	"example.com/concierge/upstream"
)

// sessionRequest is the POST /api/session body.
type sessionRequest struct {
	ProjectID  string `json:"projectId"`
	Location   string `json:"location"`
	ResourceID string `json:"resourceId"`
	UserID     string `json:"userId"`
}

// sessionResponse echoes the created session and the resolved resource name
// so the UI can reuse them for subsequent chat turns.
type sessionResponse struct {
	SessionID    string `json:"sessionId"`
	UserID       string `json:"userId"`
	ResourceName string `json:"resourceName"`
}

// handleSession creates a new conversation session on the upstream runtime.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ResourceID == "" {
		respondError(w, http.StatusBadRequest, "resourceId is required")
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
	userID := req.UserID
	if userID == "" {
		userID = "user-" + uuid.NewString()
	}

	resource := upstream.ResourceName(project, location, req.ResourceID)
	session, err := s.runtime.CreateSession(r.Context(), resource, userID)
	if err != nil {
		log.Errorf(r.Context(), err, "chatui: create session on %s", resource)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{
		SessionID:    session.ID,
		UserID:       userID,
		ResourceName: resource,
	})
}
