package handler

import (
	"net/http"

	"github.com/pairsync/sync-server/internal/service"
)

type MissionsHandler struct {
	guard    *PairGuard
	missions *service.MissionService
}

func NewMissionsHandler(guard *PairGuard, missions *service.MissionService) *MissionsHandler {
	return &MissionsHandler{guard: guard, missions: missions}
}

// GET /missions?pairId=
func (h *MissionsHandler) List(w http.ResponseWriter, r *http.Request) {
	pairID, ok := h.guard.Authorize(w, r, r.URL.Query().Get("pairId"))
	if !ok {
		return
	}

	view, err := h.missions.Today(r.Context(), pairID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /missions/complete
func (h *MissionsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeMissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	pairID, ok := h.guard.Authorize(w, r, req.PairID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.missions.Complete(r.Context(), pairID, req.MissionID, req.UpdateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
