package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/facematch"
	"github.com/kozaktomas/facevote/internal/session"
)

// CaptureHandler accepts camera frames from the capture page and resolves
// the verification session they belong to.
type CaptureHandler struct {
	sessions *session.Orchestrator
	verifier *facematch.Verifier
	voters   database.VoterStore
	messages config.MessagesConfig
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(sessions *session.Orchestrator, verifier *facematch.Verifier, voters database.VoterStore, messages config.MessagesConfig) *CaptureHandler {
	return &CaptureHandler{
		sessions: sessions,
		verifier: verifier,
		voters:   voters,
		messages: messages,
	}
}

type captureResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Verified  bool   `json:"verified"`
	Message   string `json:"message"`
}

// Submit verifies an uploaded frame against the session's purpose and
// records the outcome. A frame that produces no face or no match completes
// the session as rejected; only infrastructure failures surface as 5xx.
func (h *CaptureHandler) Submit(w http.ResponseWriter, r *http.Request) {
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

	switch s.Status {
	case database.SessionExpired:
		respondError(w, http.StatusConflict, h.messages.Expired)
		return
	case database.SessionCompleted:
		respondError(w, http.StatusConflict, "session already resolved")
		return
	}

	image, err := readCaptureFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or invalid image file")
		return
	}

	outcome, err := h.verify(r, s, image)
	if err != nil {
		log.Printf("capture verification failed for session %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	if err := h.sessions.Complete(r.Context(), id, outcome); err != nil {
		switch {
		case errors.Is(err, database.ErrSessionExpired):
			respondError(w, http.StatusConflict, h.messages.Expired)
		case errors.Is(err, database.ErrSessionAlreadyResolved):
			respondError(w, http.StatusConflict, "session already resolved")
		case errors.Is(err, database.ErrSessionNotFound):
			respondError(w, http.StatusNotFound, h.messages.NotFound)
		default:
			respondError(w, http.StatusInternalServerError, "failed to record result")
		}
		return
	}

	resp := captureResponse{
		SessionID: s.ID,
		Status:    database.SessionCompleted,
		Verified:  outcome.Verified,
	}
	if outcome.Verified {
		resp.Message = h.messages.Verified
		if s.Purpose == database.PurposeVoterRegistration {
			resp.Message = h.messages.RegisterDone
		}
	} else {
		resp.Message = h.messages.Rejected
		if s.Purpose == database.PurposeVoterRegistration {
			resp.Message = h.messages.RegisterFailed
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// verify runs the purpose-specific face check. Recognition misses come back
// as an unverified outcome with a nil error; the session still completes.
func (h *CaptureHandler) verify(r *http.Request, s *database.VerificationSession, image []byte) (database.Outcome, error) {
	ctx := r.Context()

	switch s.Purpose {
	case database.PurposeVote:
		match, err := h.verifier.MatchVoter(ctx, image)
		if err != nil {
			if isRecognitionMiss(err) {
				return database.Outcome{Verified: false}, nil
			}
			return database.Outcome{}, err
		}
		return database.Outcome{Verified: true, Matric: match.Identity}, nil

	case database.PurposeAdmin:
		match, err := h.verifier.MatchAdmin(ctx, s.UserID, image)
		if err != nil {
			if isRecognitionMiss(err) || errors.Is(err, database.ErrNotFound) {
				return database.Outcome{Verified: false}, nil
			}
			return database.Outcome{}, err
		}
		return database.Outcome{Verified: true, Matric: match.Identity}, nil

	case database.PurposeVoterRegistration:
		matric := facematch.NormalizeIdentity(s.UserID)
		if err := h.verifier.RegisterVoter(ctx, matric, image); err != nil {
			if isRecognitionMiss(err) {
				return database.Outcome{Verified: false}, nil
			}
			return database.Outcome{}, err
		}
		if err := h.voters.Add(ctx, matric); err != nil {
			return database.Outcome{}, err
		}
		return database.Outcome{Verified: true, Matric: matric}, nil

	default:
		return database.Outcome{}, errors.New("unknown session purpose: " + s.Purpose)
	}
}

// isRecognitionMiss reports whether the error means "this frame did not
// verify" as opposed to an infrastructure failure.
func isRecognitionMiss(err error) bool {
	return errors.Is(err, database.ErrNoFaceDetected) ||
		errors.Is(err, database.ErrNoMatch) ||
		errors.Is(err, database.ErrEmbedding)
}
