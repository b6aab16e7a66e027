package api

import (
	"fmt"
	"net/http"
)

// StatsProvider exposes service counters and per-cohort run state.
// Per-cohort entries live under the "cohorts" key.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats writes the full stats map, or only one cohort's entry when
// ?cohort= is given.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.statsProvider.GetStats()
	cohort := r.URL.Query().Get("cohort")
	if cohort == "" {
		writeJSON(w, http.StatusOK, stats)
		return
	}
	cohorts, _ := stats["cohorts"].(map[string]interface{})
	entry, ok := cohorts[cohort]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("unknown cohort %q", cohort))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
