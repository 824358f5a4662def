package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/index"
	"github.com/mpgirro/hemin/internal/podcast"
	"github.com/mpgirro/hemin/internal/telemetry"
)

type healthResponse struct {
	Status    string `json:"status"`
	Documents uint64 `json:"documents"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Documents: s.engine.DocCount()})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	query := q.Get("q")

	result, err := s.search(r, query)
	ev := telemetry.QueryEvent{Query: query, Latency: time.Since(start), Failed: err != nil}
	if err != nil {
		s.metrics.Record(ev)
		s.writeError(w, r, err)
		return
	}
	ev.Hits = result.TotalHits
	s.metrics.Record(ev)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) search(r *http.Request, query string) (*index.ResultPage, error) {
	q := r.URL.Query()
	page, err := intParam(q.Get("p"), 1, "p")
	if err != nil {
		return nil, err
	}
	size, err := intParam(q.Get("s"), DefaultPageSize, "s")
	if err != nil {
		return nil, err
	}
	return s.engine.Search(r.Context(), query, page, size)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	exo := chi.URLParam(r, "exo")
	doc, err := s.engine.FindByExternalID(r.Context(), exo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if doc == nil {
		s.writeNotFound(w, "document", exo)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	if !s.catalogReady(w, r) {
		return
	}
	exo := chi.URLParam(r, "exo")
	show, err := s.catalog.ShowByExo(r.Context(), exo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if show == nil {
		s.writeNotFound(w, "show", exo)
		return
	}
	s.writeJSON(w, http.StatusOK, show)
}

func (s *Server) handleShowEpisodes(w http.ResponseWriter, r *http.Request) {
	if !s.catalogReady(w, r) {
		return
	}
	exo := chi.URLParam(r, "exo")
	show, err := s.catalog.ShowByExo(r.Context(), exo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if show == nil {
		s.writeNotFound(w, "show", exo)
		return
	}

	episodes, err := s.catalog.EpisodesByShow(r.Context(), exo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if episodes == nil {
		episodes = []*podcast.Episode{}
	}
	s.writeJSON(w, http.StatusOK, episodes)
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	if !s.catalogReady(w, r) {
		return
	}
	exo := chi.URLParam(r, "exo")
	ep, err := s.catalog.EpisodeByExo(r.Context(), exo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ep == nil {
		s.writeNotFound(w, "episode", exo)
		return
	}
	s.writeJSON(w, http.StatusOK, ep)
}

func (s *Server) catalogReady(w http.ResponseWriter, r *http.Request) bool {
	if s.catalog != nil {
		return true
	}
	s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog not configured"})
	return false
}

func intParam(raw string, fallback int, name string) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ValidationError("parameter "+name+" must be an integer", err).WithDetail(name, raw)
	}
	return n, nil
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch code := errors.GetCode(err); {
	case code == errors.ErrCodeDuplicateExternalID:
		return http.StatusConflict
	case code == errors.ErrCodeIndexClosed, code == errors.ErrCodeIndexLocked:
		return http.StatusServiceUnavailable
	case errors.GetCategory(err) == errors.CategoryValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("api_error", append([]any{slog.String("path", r.URL.Path)}, errors.LogAttrs(err)...)...)
	}

	body, mErr := errors.FormatJSON(err)
	if mErr != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) writeNotFound(w http.ResponseWriter, kind, exo string) {
	s.writeJSON(w, http.StatusNotFound, map[string]string{"error": kind + " not found", "exo": exo})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("api_encode_failed", slog.String("error", err.Error()))
	}
}
