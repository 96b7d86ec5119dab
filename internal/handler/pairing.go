package handler

import (
	"net/http"

	"github.com/pairsync/sync-server/internal/audit"
	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/model"
	"github.com/pairsync/sync-server/internal/service"
	"github.com/pairsync/sync-server/internal/util"
)

type PairingHandler struct {
	pairing   *service.PairingService
	blocklist *service.BlocklistService
}

func NewPairingHandler(pairing *service.PairingService, blocklist *service.BlocklistService) *PairingHandler {
	return &PairingHandler{
		pairing:   pairing,
		blocklist: blocklist,
	}
}

// POST /pairing
func (h *PairingHandler) Create(w http.ResponseWriter, r *http.Request) {
	code, err := h.pairing.CreatePairing(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventPairingIssued,
		Details: map[string]any{"code": util.MaskCode(code.Code)},
	})
	writeJSON(w, http.StatusOK, code)
}

// POST /pairing/connect
func (h *PairingHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	pairID, err := h.pairing.ConsumeCode(r.Context(), req.Code)
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventPairingFailed,
			Details: map[string]any{"reason": string(apperrors.GetCode(err))},
		})
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventPairingConsumed, PairID: pairID})
	writeJSON(w, http.StatusOK, map[string]string{"pairId": pairID})
}

// GET /pairing/status?code=
func (h *PairingHandler) Status(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.pairing.Status(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, err)
		return
	}

	switch lookup.Status {
	case model.PairingStatusPending:
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNoContent)
	case model.PairingStatusMatched:
		writeJSON(w, http.StatusOK, map[string]string{"pairId": lookup.PairID})
	default:
		writeError(w, apperrors.PairingCodeGone())
	}
}

// POST /unlink
func (h *PairingHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	var req unlinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	pairID, err := ResolvePairID(r, req.PairID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.blocklist.Unlink(r.Context(), pairID); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventPairUnlinked, PairID: pairID})
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
