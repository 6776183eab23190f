package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/ledger"
	"github.com/kozaktomas/facevote/internal/session"
)

// VotesHandler turns a completed vote-purpose session into ledger entries.
type VotesHandler struct {
	sessions *session.Orchestrator
	ledger   *ledger.Ledger
	messages config.MessagesConfig
}

// NewVotesHandler creates a new votes handler
func NewVotesHandler(sessions *session.Orchestrator, ledger *ledger.Ledger, messages config.MessagesConfig) *VotesHandler {
	return &VotesHandler{sessions: sessions, ledger: ledger, messages: messages}
}

type castVoteRequest struct {
	SessionID    string   `json:"session_id"`
	CandidateIDs []string `json:"candidate_ids"`
}

type castVoteResponse struct {
	Matric   string           `json:"matric"`
	Receipts []ledger.Receipt `json:"receipts"`
	Message  string           `json:"message"`
}

// Cast consumes a verified session and records the ballot. The session is
// spent even when the ballot itself is rejected; the voter must verify again
// to retry.
func (h *VotesHandler) Cast(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.SessionID == "" || len(req.CandidateIDs) == 0 {
		respondError(w, http.StatusBadRequest, "session_id and candidate_ids are required")
		return
	}

	s, err := h.sessions.Poll(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, h.messages.NotFound)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if s.Purpose != database.PurposeVote {
		respondError(w, http.StatusBadRequest, "session was not created for voting")
		return
	}

	outcome, err := h.sessions.Consume(r.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrSessionExpired):
			respondError(w, http.StatusConflict, h.messages.Expired)
		case errors.Is(err, database.ErrSessionNotCompleted):
			respondError(w, http.StatusConflict, h.messages.InProgress)
		case errors.Is(err, database.ErrNoMatch):
			respondError(w, http.StatusForbidden, h.messages.Rejected)
		case errors.Is(err, database.ErrSessionAlreadyResolved):
			respondError(w, http.StatusConflict, "session already used")
		case errors.Is(err, database.ErrSessionNotFound):
			respondError(w, http.StatusNotFound, h.messages.NotFound)
		default:
			respondError(w, http.StatusInternalServerError, "failed to consume session")
		}
		return
	}

	receipts, err := h.ledger.Cast(r.Context(), outcome.Matric, s.ElectionID, req.CandidateIDs)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrAlreadyVoted):
			respondError(w, http.StatusConflict, h.messages.AlreadyVoted)
		case errors.Is(err, database.ErrVoterNotRegistered):
			respondError(w, http.StatusForbidden, h.messages.NotRegistered)
		case errors.Is(err, database.ErrElectionNotActive):
			respondError(w, http.StatusConflict, "election is not active")
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusBadRequest, "unknown election or candidate")
		default:
			log.Printf("failed to cast ballot for session %s: %v", sanitizeForLog(req.SessionID), err)
			respondError(w, http.StatusInternalServerError, "failed to record vote")
		}
		return
	}

	respondJSON(w, http.StatusCreated, castVoteResponse{
		Matric:   outcome.Matric,
		Receipts: receipts,
		Message:  h.messages.VoteSubmitted,
	})
}
