package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/pose-check/internal/store"
	"github.com/kozaktomas/pose-check/internal/vector"
)

// StatsHandler reports collection counters.
type StatsHandler struct {
	store store.Store
	index vector.Index
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(st store.Store, ix vector.Index) *StatsHandler {
	return &StatsHandler{store: st, index: ix}
}

// StatsResponse represents the stats response.
type StatsResponse struct {
	Images       int `json:"images"`
	Scans        int `json:"scans"`
	IndexEntries int `json:"index_entries"`
}

// Get returns image, scan and index entry counts.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	images, err := h.store.CountImages(ctx)
	if err != nil {
		log.Printf("counting images: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	scans, err := h.store.CountScans(ctx)
	if err != nil {
		log.Printf("counting scans: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	entries, err := h.index.Count(ctx)
	if err != nil {
		log.Printf("counting index entries: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Images:       images,
		Scans:        scans,
		IndexEntries: entries,
	})
}
