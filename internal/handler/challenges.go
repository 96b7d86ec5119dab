package handler

import (
	"net/http"

	"github.com/pairsync/sync-server/internal/service"
)

type ChallengesHandler struct {
	guard      *PairGuard
	challenges *service.ChallengeService
}

func NewChallengesHandler(guard *PairGuard, challenges *service.ChallengeService) *ChallengesHandler {
	return &ChallengesHandler{guard: guard, challenges: challenges}
}

// POST /challenge/start
func (h *ChallengesHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startChallengeRequest
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

	res, err := h.challenges.Start(r.Context(), service.StartChallengeInput{
		PairID:      pairID,
		Text:        req.Text,
		ChallengeID: req.ChallengeID,
		UpdateID:    req.UpdateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /challenge/complete
func (h *ChallengesHandler) Complete(w http.ResponseWriter, r *http.Request) {
	req, pairID, ok := h.decodeAction(w, r)
	if !ok {
		return
	}

	res, err := h.challenges.Complete(r.Context(), pairID, req.ChallengeID, req.UpdateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /challenge/approve
func (h *ChallengesHandler) Approve(w http.ResponseWriter, r *http.Request) {
	req, pairID, ok := h.decodeAction(w, r)
	if !ok {
		return
	}

	res, err := h.challenges.Approve(r.Context(), pairID, req.ChallengeID, req.UpdateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /challenges?pairId=
func (h *ChallengesHandler) List(w http.ResponseWriter, r *http.Request) {
	pairID, ok := h.guard.Authorize(w, r, r.URL.Query().Get("pairId"))
	if !ok {
		return
	}

	challenges, err := h.challenges.List(r.Context(), pairID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": challenges})
}

func (h *ChallengesHandler) decodeAction(w http.ResponseWriter, r *http.Request) (challengeActionRequest, string, bool) {
	var req challengeActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return req, "", false
	}

	pairID, ok := h.guard.Authorize(w, r, req.PairID)
	if !ok {
		return req, "", false
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return req, "", false
	}
	return req, pairID, true
}
