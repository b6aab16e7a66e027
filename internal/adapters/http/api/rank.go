package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/cpboard/internal/adapters/repository"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Rank(ctx context.Context, cohort, id string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{cohort}/{id} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	cohort, id, ok := rankPath(r.URL)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	entry, err := h.deps.Rank(r.Context(), cohort, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// rankPath splits /rank/{cohort}/{id}. Both segments are path-unescaped so
// cohort names with spaces survive.
func rankPath(u *url.URL) (cohort, id string, ok bool) {
	rest := strings.TrimPrefix(u.EscapedPath(), "/rank/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	cohort, err := url.PathUnescape(parts[0])
	if err != nil {
		return "", "", false
	}
	id, err = url.PathUnescape(parts[1])
	if err != nil {
		return "", "", false
	}
	cohort, id = strings.TrimSpace(cohort), strings.TrimSpace(id)
	if cohort == "" || id == "" {
		return "", "", false
	}
	return cohort, id, true
}
