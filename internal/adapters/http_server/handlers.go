package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"realestate/internal/app"
	"realestate/internal/domain"
)

const defaultMaxBody = 1 << 20

// Handlers serves every kind of the catalog through the same five routes.
type Handlers struct {
	Cmd          *app.ListingService
	Q            *app.QueryService
	MaxBodyBytes int64
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Get("/property-types", h.propertyTypes)

	for _, k := range domain.Kinds() {
		s.mux.Route("/"+k.Path, func(r chi.Router) {
			r.Post("/", h.create(k))
			r.Get("/", h.list(k))
			r.Get("/{id}", h.get(k))
			r.Put("/{id}", h.update(k))
			r.Delete("/{id}", h.remove(k))
		})
	}
}

func (h *Handlers) propertyTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: domain.Kinds()})
}

func (h *Handlers) create(k domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := h.decodeObject(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		l, err := h.Cmd.Create(r.Context(), k, body, r.Header.Get("X-User-ID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, envelope{Success: true, Message: k.Label + " listing created", Data: l})
	}
}

func (h *Handlers) list(k domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := domain.ListQuery{Page: 1, Limit: app.DefaultPageLimit}
		if v := r.URL.Query().Get("page"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil || p < 1 {
				writeError(w, r, domain.Invalid("page", "must be a positive integer"))
				return
			}
			q.Page = p
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			l, err := strconv.Atoi(v)
			if err != nil || l < 1 || l > app.MaxPageLimit {
				writeError(w, r, domain.Invalid("limit", "must be an integer between 1 and "+strconv.Itoa(app.MaxPageLimit)))
				return
			}
			q.Limit = l
		}

		page, err := h.Q.List(r.Context(), k, q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			Success:    true,
			Data:       page.Items,
			Pagination: &pagination{Page: page.Page, Limit: page.Limit, Total: page.Total},
		})
	}
}

func (h *Handlers) get(k domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := h.Q.Get(r.Context(), k, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		etag, body := calcETagAndBody(envelope{Success: true, Data: l})
		// If client already has this version, short-circuit.
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			log.Error().Err(err).Msg("failed to write listing body")
		}
	}
}

func (h *Handlers) update(k domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patch, err := h.decodeObject(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		l, err := h.Cmd.Update(r.Context(), k, chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Message: "listing updated", Data: l})
	}
}

func (h *Handlers) remove(k domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := h.Cmd.Delete(r.Context(), k, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			Success: true,
			Message: "listing deleted",
			Data:    map[string]string{domain.KeyID: l.ID, domain.KeyPropertyID: l.PropertyID},
		})
	}
}

// decodeObject reads a size-capped JSON object body.
func (h *Handlers) decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	var v any
	err := dec.Decode(&v)
	if err == nil {
		// exactly one value; anything after it is rejected
		if _, terr := dec.Token(); !errors.Is(terr, io.EOF) {
			err = terr
			if err == nil {
				err = errors.New("unexpected data after JSON object")
			}
		}
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return nil, domain.Invalid("", "request body too large")
	case errors.Is(err, io.EOF):
		return nil, domain.Invalid("", "request body must be a JSON object")
	case err != nil:
		return nil, domain.Invalid("", "malformed JSON: "+err.Error())
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, domain.Invalid("", "request body must be a JSON object")
	}
	return obj, nil
}
