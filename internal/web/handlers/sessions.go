package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/session"
)

// SessionsHandler serves verification session creation and polling.
type SessionsHandler struct {
	sessions *session.Orchestrator
	messages config.MessagesConfig
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(sessions *session.Orchestrator, messages config.MessagesConfig) *SessionsHandler {
	return &SessionsHandler{sessions: sessions, messages: messages}
}

type createSessionRequest struct {
	UserID     string `json:"user_id"`
	Purpose    string `json:"purpose"`
	ElectionID string `json:"election_id,omitempty"`
}

type sessionResponse struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Purpose    string            `json:"purpose"`
	ElectionID string            `json:"election_id,omitempty"`
	Status     string            `json:"status"`
	Result     *database.Outcome `json:"result,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	CaptureURL string            `json:"capture_url,omitempty"`
	Message    string            `json:"message,omitempty"`
}

func (h *SessionsHandler) sessionResponse(s *database.VerificationSession) sessionResponse {
	resp := sessionResponse{
		ID:         s.ID,
		UserID:     s.UserID,
		Purpose:    s.Purpose,
		ElectionID: s.ElectionID,
		Status:     s.Status,
		Result:     s.Result,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
	}

	switch s.Status {
	case database.SessionPending:
		resp.CaptureURL = "/verify/" + s.ID
		resp.Message = h.messages.InProgress
	case database.SessionExpired:
		resp.Message = h.messages.Expired
	case database.SessionCompleted:
		if s.Result != nil && s.Result.Verified {
			resp.Message = h.messages.Verified
		} else {
			resp.Message = h.messages.Rejected
		}
	}
	return resp
}

// Create opens a new pending verification session.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	s, err := h.sessions.Create(r.Context(), req.UserID, req.Purpose, req.ElectionID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, h.sessionResponse(s))
}

// Poll returns the current state of a session. Safe to call repeatedly;
// terminal states never change.
func (h *SessionsHandler) Poll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, err := h.sessions.Poll(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, h.messages.NotFound)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	respondJSON(w, http.StatusOK, h.sessionResponse(s))
}
