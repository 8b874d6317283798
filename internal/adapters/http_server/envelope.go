package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"realestate/internal/domain"
)

// envelope is the response shape of every listing route.
type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeError maps the error taxonomy: validation 400, missing 404,
// everything else 500 with the cause logged rather than echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, envelope{Message: "validation failed", Error: ve.Error()})
	case errors.Is(err, domain.ErrInvalidPropertyID):
		writeJSON(w, http.StatusBadRequest, envelope{Message: "validation failed", Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Message: "listing not found", Error: "not found"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, envelope{Message: "request cancelled", Error: err.Error()})
	case errors.Is(err, domain.ErrMaxRetriesExceeded):
		log.Error().Err(err).Str("request_id", chimw.GetReqID(r.Context())).Msg("propertyId allocation exhausted")
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "could not allocate a propertyId", Error: "internal error"})
	default:
		log.Error().Err(err).Str("route", routeOf(r)).Str("request_id", chimw.GetReqID(r.Context())).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "internal server error", Error: "internal error"})
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}
