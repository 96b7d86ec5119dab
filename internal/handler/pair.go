package handler

import (
	"net/http"
	"strings"

	"github.com/pairsync/sync-server/internal/audit"
	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/service"
	"github.com/pairsync/sync-server/internal/util"
)

const (
	PairIDHeader = "X-Pair-Id"
	PairIDCookie = "pairId"
	// AnonPairID is used when a request names no pair at all.
	AnonPairID = "anon"
)

// ResolvePairID applies the precedence explicit value (body field or query),
// then header, then cookie, then AnonPairID.
func ResolvePairID(r *http.Request, explicit string) (string, error) {
	id := strings.TrimSpace(explicit)
	if id == "" {
		id = strings.TrimSpace(r.Header.Get(PairIDHeader))
	}
	if id == "" {
		if c, err := r.Cookie(PairIDCookie); err == nil {
			id = strings.TrimSpace(c.Value)
		}
	}
	if id == "" {
		return AnonPairID, nil
	}
	if !util.IsValidIdentifier(id) {
		return "", apperrors.InvalidInput("pairId", "must be 1-64 letters, digits, '-' or '_'")
	}
	return id, nil
}

// PairGuard resolves the pair a request addresses and rejects blocked pairs.
type PairGuard struct {
	blocklist *service.BlocklistService
}

func NewPairGuard(blocklist *service.BlocklistService) *PairGuard {
	return &PairGuard{blocklist: blocklist}
}

// Authorize writes the error response itself and returns false when the
// request must stop.
func (g *PairGuard) Authorize(w http.ResponseWriter, r *http.Request, explicit string) (string, bool) {
	pairID, err := ResolvePairID(r, explicit)
	if err != nil {
		writeError(w, err)
		return "", false
	}

	if err := g.blocklist.CheckNotBlocked(r.Context(), pairID); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeBlocked) {
			audit.LogFromRequest(r, audit.Event{
				Type:   audit.EventBlockedAccess,
				PairID: pairID,
				Details: map[string]any{
					"path": r.URL.Path,
				},
			})
		}
		writeError(w, err)
		return "", false
	}
	return pairID, true
}
