package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/facematch"
)

// AdminsHandler manages the admin roster.
type AdminsHandler struct {
	admins   database.AdminStore
	verifier *facematch.Verifier
}

// NewAdminsHandler creates a new admins handler
func NewAdminsHandler(admins database.AdminStore, verifier *facematch.Verifier) *AdminsHandler {
	return &AdminsHandler{admins: admins, verifier: verifier}
}

type addAdminRequest struct {
	ChatID string `json:"chat_id"`
}

// Add registers a chat ID as an admin.
func (h *AdminsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ChatID == "" {
		respondError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	if err := h.admins.Add(r.Context(), req.ChatID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to add admin")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"chat_id": req.ChatID})
}

// Remove drops a chat ID from the admin roster.
func (h *AdminsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	if err := h.admins.Remove(r.Context(), chatID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to remove admin")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"chat_id": chatID, "status": "removed"})
}

// List returns all admin chat IDs.
func (h *AdminsHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list admins")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"admins": admins})
}

// Enroll stores a face encoding for an admin so they can pass the 1:1
// face check on privileged actions.
func (h *AdminsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	exists, err := h.admins.Exists(r.Context(), chatID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check admin")
		return
	}
	if !exists {
		respondError(w, http.StatusNotFound, "admin not found")
		return
	}

	image, err := readCaptureFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or invalid image file")
		return
	}

	if err := h.verifier.RegisterAdmin(r.Context(), chatID, image); err != nil {
		if isRecognitionMiss(err) {
			respondError(w, http.StatusUnprocessableEntity, "no usable face in the image")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to enroll face")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"chat_id": chatID, "status": "enrolled"})
}
