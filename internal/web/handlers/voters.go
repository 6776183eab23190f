package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/facematch"
)

// VotersHandler manages the voter roll.
type VotersHandler struct {
	voters   database.VoterStore
	verifier *facematch.Verifier
}

// NewVotersHandler creates a new voters handler
func NewVotersHandler(voters database.VoterStore, verifier *facematch.Verifier) *VotersHandler {
	return &VotersHandler{voters: voters, verifier: verifier}
}

type addVoterRequest struct {
	Matric string `json:"matric"`
}

// Add puts a matric number on the voter roll. Idempotent; the voter still
// has to enroll a face before they can verify.
func (h *VotersHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	matric := facematch.NormalizeIdentity(req.Matric)
	if matric == "" {
		respondError(w, http.StatusBadRequest, "matric is required")
		return
	}

	if err := h.voters.Add(r.Context(), matric); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to add voter")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"matric": matric})
}

// Get reports whether a matric number is on the roll. The bot uses this as
// a pre-check before opening a verification session.
func (h *VotersHandler) Get(w http.ResponseWriter, r *http.Request) {
	matric := facematch.NormalizeIdentity(chi.URLParam(r, "matric"))

	exists, err := h.voters.Exists(r.Context(), matric)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check voter")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"matric": matric, "registered": exists})
}

// List returns the voter roll.
func (h *VotersHandler) List(w http.ResponseWriter, r *http.Request) {
	voters, err := h.voters.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list voters")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"voters": voters})
}

// Enroll stores a face encoding for a voter directly, bypassing the session
// flow. Used by operators enrolling voters from reference photos.
func (h *VotersHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	matric := facematch.NormalizeIdentity(chi.URLParam(r, "matric"))

	image, err := readCaptureFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or invalid image file")
		return
	}

	if err := h.verifier.RegisterVoter(r.Context(), matric, image); err != nil {
		if isRecognitionMiss(err) {
			respondError(w, http.StatusUnprocessableEntity, "no usable face in the image")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to enroll face")
		return
	}

	if err := h.voters.Add(r.Context(), matric); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to add voter")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"matric": matric, "status": "enrolled"})
}
