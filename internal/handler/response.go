package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// decodeJSON reads a request body into dst. An empty body leaves dst at its
// zero value; field validation catches anything required.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.ValidationError("Invalid request body")
	}
	return nil
}

type okResponse struct {
	OK         bool `json:"ok"`
	Idempotent bool `json:"idempotent,omitempty"`
}
