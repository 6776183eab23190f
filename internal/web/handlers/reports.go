package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facevote/internal/database"
)

// ReportsHandler records voter-submitted issues for operators to review.
type ReportsHandler struct {
	reports database.ReportStore
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(reports database.ReportStore) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

type createReportRequest struct {
	VoterID string `json:"voter_id"`
	Issue   string `json:"issue"`
}

// Create records an issue report.
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Issue == "" {
		respondError(w, http.StatusBadRequest, "issue is required")
		return
	}

	report := &database.Report{
		ID:        uuid.NewString(),
		VoterID:   req.VoterID,
		Issue:     req.Issue,
		Timestamp: time.Now().UTC(),
	}
	if err := h.reports.Add(r.Context(), report); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to record report")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": report.ID, "status": "recorded"})
}

// List returns reports, newest first.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"reports": reports})
}
