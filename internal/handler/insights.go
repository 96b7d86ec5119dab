package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pairsync/sync-server/internal/service"
)

// InsightsHandler serves the derived, read-mostly views of a pair.
type InsightsHandler struct {
	guard  *PairGuard
	state  *service.StateService
	scores *service.ScoreService
	garden *service.GardenService
	status *service.StatusService
}

func NewInsightsHandler(
	guard *PairGuard,
	state *service.StateService,
	scores *service.ScoreService,
	garden *service.GardenService,
	status *service.StatusService,
) *InsightsHandler {
	return &InsightsHandler{
		guard:  guard,
		state:  state,
		scores: scores,
		garden: garden,
		status: status,
	}
}

// GET /scores?pairId=
func (h *InsightsHandler) Scores(w http.ResponseWriter, r *http.Request) {
	pairID, ok := h.guard.Authorize(w, r, r.URL.Query().Get("pairId"))
	if !ok {
		return
	}

	view, err := h.scores.Get(r.Context(), pairID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GET /garden?pairId=
func (h *InsightsHandler) Garden(w http.ResponseWriter, r *http.Request) {
	pairID, ok := h.guard.Authorize(w, r, r.URL.Query().Get("pairId"))
	if !ok {
		return
	}

	snapshot, err := h.garden.Status(r.Context(), pairID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// GET /status?pairId=
// Answers If-None-Match with 304 while the pair's global version is unchanged.
func (h *InsightsHandler) Status(w http.ResponseWriter, r *http.Request) {
	pairID, ok := h.guard.Authorize(w, r, r.URL.Query().Get("pairId"))
	if !ok {
		return
	}

	version, err := h.status.Version(r.Context(), pairID)
	if err != nil {
		writeError(w, err)
		return
	}

	etag := versionETag(version)
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	view, err := h.status.Status(r.Context(), pairID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", versionETag(view.Version))
	writeJSON(w, http.StatusOK, view)
}

// GET /activity?pairId=&limit=
func (h *InsightsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	pairID, ok := h.guard.Authorize(w, r, r.URL.Query().Get("pairId"))
	if !ok {
		return
	}

	entries, err := h.state.Activity(r.Context(), pairID, ParseLimit(r, DefaultLimit, DefaultLimit))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

func versionETag(version int64) string {
	return `"v` + strconv.FormatInt(version, 10) + `"`
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
