package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"impacttrip/internal/app"
	"impacttrip/internal/domain"
)

// OpportunityReader serves single catalog items outside any session.
type OpportunityReader interface {
	Opportunity(ctx context.Context, id string) (domain.CatalogItem, error)
}

type Handlers struct {
	Sessions *app.SessionManager
	Catalog  OpportunityReader
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
	Slot   *int   `json:"slot,omitempty"`
}

type criteriaView struct {
	Criteria domain.SearchCriteria `json:"criteria"`
	MinStart string                `json:"minStart"`
	MinEnd   string                `json:"minEnd"`
}

type valueBody struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Delete("/", h.deleteSession)
			r.Get("/frame", h.getFrame)

			r.Get("/criteria", h.getCriteria)
			r.Put("/criteria/ages/{index}", h.putAge)
			r.Put("/criteria/{field}", h.putCriteriaField)
			r.Post("/criteria/submit", h.submitCriteria)

			r.Get("/facets", h.getFacets)
			r.Post("/facets/languages/{token}", h.toggleLanguage)
			r.Post("/facets/languages/any", h.setAnyLanguage)
			r.Put("/facets/duration/{bucket}", h.setDuration)

			r.Get("/lanes", h.getLanes)
			r.Get("/hotels", h.getHotels)
			r.Post("/items/{id}/select", h.selectItem)
		})
	})
	if h.Catalog != nil {
		s.mux.Get("/v1/opportunities/{id}", h.getOpportunity)
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemDoc(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemDoc(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem documents.
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		p := problem{Type: "about:blank", Title: "Invalid criteria", Status: http.StatusUnprocessableEntity, Detail: verr.Message, Field: verr.Field}
		if verr.Slot >= 0 {
			slot := verr.Slot
			p.Slot = &slot
		}
		writeProblemDoc(w, p)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
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
		log.Error().Err(err).Msg("failed to write body")
	}
}

// withSession opens the session named in the path and runs fn under its lock.
func (h *Handlers) withSession(w http.ResponseWriter, r *http.Request, fn func(*app.Session) error) {
	s, err := h.Sessions.Open(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Do(fn); err != nil {
		writeError(w, err)
	}
}

// readValue accepts {"value": "..."} or {"value": 3}.
func readValue(r *http.Request) (string, error) {
	var b valueBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&b); err != nil {
		return "", err
	}
	raw := strings.TrimSpace(string(b.Value))
	if raw == "" || raw == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(b.Value, &s); err == nil {
		return s, nil
	}
	return raw, nil
}

func (h *Handlers) criteriaView(s *app.Session, c domain.SearchCriteria) criteriaView {
	start, end := s.Form.MinDates()
	return criteriaView{Criteria: c, MinStart: start, MinEnd: end}
}

func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Open(r.Context(), "")
	if err != nil {
		writeError(w, err)
		return
	}
	_ = s.Do(func(s *app.Session) error {
		w.Header().Set("Location", "/v1/sessions/"+s.ID)
		writeJSON(w, http.StatusCreated, struct {
			ID string `json:"id"`
			criteriaView
		}{s.ID, h.criteriaView(s, s.Form.Criteria())})
		return nil
	})
}

func (h *Handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Close(chi.URLParam(r, "sid")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) getFrame(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error {
		writeJSON(w, http.StatusOK, s.Frame.Snapshot())
		return nil
	})
}

func (h *Handlers) getCriteria(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error {
		writeJSON(w, http.StatusOK, h.criteriaView(s, s.Form.Criteria()))
		return nil
	})
}

func (h *Handlers) putCriteriaField(w http.ResponseWriter, r *http.Request) {
	v, err := readValue(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", `expected {"value": ...}`)
		return
	}
	field := app.Field(chi.URLParam(r, "field"))
	h.withSession(w, r, func(s *app.Session) error {
		c, err := s.Form.ChangeField(r.Context(), field, v)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, h.criteriaView(s, c))
		return nil
	})
}

func (h *Handlers) putAge(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid index", "index must be a number")
		return
	}
	v, err := readValue(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", `expected {"value": ...}`)
		return
	}
	h.withSession(w, r, func(s *app.Session) error {
		c, err := s.Form.ChangeAge(r.Context(), idx, v)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, h.criteriaView(s, c))
		return nil
	})
}

func (h *Handlers) submitCriteria(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error {
		c, err := s.Form.Submit(r.Context())
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, h.criteriaView(s, c))
		return nil
	})
}

func (h *Handlers) getFacets(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error {
		writeJSON(w, http.StatusOK, s.Facets.Snapshot())
		return nil
	})
}

func (h *Handlers) toggleLanguage(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	h.withSession(w, r, func(s *app.Session) error {
		writeJSON(w, http.StatusOK, s.Facets.ToggleLanguage(tok))
		return nil
	})
}

func (h *Handlers) setAnyLanguage(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error {
		writeJSON(w, http.StatusOK, s.Facets.SetAny())
		return nil
	})
}

func (h *Handlers) setDuration(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	h.withSession(w, r, func(s *app.Session) error {
		f, err := s.Facets.SetDuration(bucket)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid duration", err.Error())
			return nil
		}
		writeJSON(w, http.StatusOK, f)
		return nil
	})
}

func (h *Handlers) getLanes(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error {
		writeWithETag(w, r, s.Engine.Lanes())
		return nil
	})
}

func (h *Handlers) getHotels(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error {
		writeWithETag(w, r, s.Hotels.Panel())
		return nil
	})
}

func (h *Handlers) selectItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.withSession(w, r, func(s *app.Session) error {
		it, err := s.Engine.Select(id)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, it)
		return nil
	})
}

func (h *Handlers) getOpportunity(w http.ResponseWriter, r *http.Request) {
	it, err := h.Catalog.Opportunity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeWithETag(w, r, it)
}
