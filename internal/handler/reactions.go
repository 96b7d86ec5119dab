package handler

import (
	"net/http"

	"github.com/pairsync/sync-server/internal/service"
)

type ReactionsHandler struct {
	guard     *PairGuard
	reactions *service.ReactionService
}

func NewReactionsHandler(guard *PairGuard, reactions *service.ReactionService) *ReactionsHandler {
	return &ReactionsHandler{guard: guard, reactions: reactions}
}

type kudosResponse struct {
	OK bool `json:"ok"`
	*service.KudosResult
}

// POST /reaction
func (h *ReactionsHandler) Record(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.reactions.Record(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true, Idempotent: res.Idempotent})
}

// POST /kudos/confirm
func (h *ReactionsHandler) ConfirmKudos(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.reactions.ConfirmKudos(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kudosResponse{OK: true, KudosResult: res})
}

func (h *ReactionsHandler) decode(w http.ResponseWriter, r *http.Request) (service.ReactionInput, bool) {
	var req reactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return service.ReactionInput{}, false
	}

	pairID, ok := h.guard.Authorize(w, r, req.PairID)
	if !ok {
		return service.ReactionInput{}, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return service.ReactionInput{}, false
	}

	return service.ReactionInput{
		PairID:   pairID,
		Reaction: req.Reaction,
		Note:     req.Note,
		UpdateID: req.UpdateID,
	}, true
}
