package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facevote/internal/database"
	"github.com/kozaktomas/facevote/internal/election"
)

// ElectionsHandler serves election lifecycle and results endpoints.
type ElectionsHandler struct {
	elections *election.Service
}

// NewElectionsHandler creates a new elections handler
func NewElectionsHandler(elections *election.Service) *ElectionsHandler {
	return &ElectionsHandler{elections: elections}
}

type createElectionRequest struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type addCandidateRequest struct {
	Name      string `json:"name"`
	Position  string `json:"position"`
	ImagePath string `json:"image_path,omitempty"`
}

// Create registers a new election with a voting window.
func (h *ElectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	e, err := h.elections.Create(r.Context(), req.Title, req.StartTime, req.EndTime)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, e)
}

// List returns all elections with their derived status.
func (h *ElectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.elections.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list elections")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"elections": views})
}

// ListActive returns elections whose voting window is currently open.
func (h *ElectionsHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	views, err := h.elections.ListActive(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list elections")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"elections": views})
}

// Get returns a single election.
func (h *ElectionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.elections.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "election not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load election")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// AddCandidate puts a candidate on the ballot of a pending election.
func (h *ElectionsHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req addCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	c, err := h.elections.AddCandidate(r.Context(), id, req.Name, req.Position, req.ImagePath)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "election not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

// Candidates returns the ballot of an election grouped by position order.
func (h *ElectionsHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	candidates, err := h.elections.Candidates(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "election not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to list candidates")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// Results returns the tally. Only available once the election has ended.
func (h *ElectionsHandler) Results(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	counts, err := h.elections.Results(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusNotFound, "election not found")
		case errors.Is(err, database.ErrResultsNotAvailable):
			respondError(w, http.StatusConflict, "results are not available until the election ends")
		default:
			respondError(w, http.StatusInternalServerError, "failed to tally results")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"results": counts})
}
