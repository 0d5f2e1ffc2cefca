package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/go-ports/poimap/internal/export"
	"github.com/go-ports/poimap/internal/models"
	"github.com/go-ports/poimap/internal/redaction"
	"github.com/go-ports/poimap/internal/render"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SelectionFromQuery reads category, state, city and rows from q. Missing
// values are left empty for the pipeline to resolve.
func SelectionFromQuery(q url.Values) (models.FilterSelection, error) {
	sel := models.FilterSelection{
		Category: q.Get("category"),
		State:    q.Get("state"),
		City:     q.Get("city"),
	}
	if raw := q.Get("rows"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return sel, fmt.Errorf("rows: %q is not an integer", raw)
		}
		sel.Rows = n
	}
	return sel, nil
}

func (s *Server) selection(w http.ResponseWriter, r *http.Request) (models.FilterSelection, bool) {
	sel, err := SelectionFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return sel, false
	}
	return sel, true
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.Page(&buf, s.sess.Select(sel)); err != nil {
		slog.Error("render page failed", "err", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"dataset": s.sess.Stats(),
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	v := s.sess.Select(sel)
	writeJSON(w, http.StatusOK, map[string]any{
		"selection": v.Selection,
		"reset":     v.Reset,
		"options":   v.Options,
		"row_limit": v.RowLimit,
	})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Select(sel))
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	v := s.sess.Select(sel)
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(v.Map.Features); err != nil {
		slog.Warn("encode geojson failed", "err", err)
	}
}

func includeExtra(r *http.Request) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get("extra"))
	return b
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if _, err := s.sess.WriteCSV(&buf, sel, includeExtra(r)); err != nil {
		slog.Error("csv export failed", "err", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	rcpt, err := s.sess.Publish(r.Context(), sel, includeExtra(r))
	switch {
	case errors.Is(err, export.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "export publishing is not configured")
		return
	case err != nil:
		slog.Error("publish failed", "err", err)
		writeError(w, http.StatusBadGateway, "publish failed")
		return
	}
	writeJSON(w, http.StatusCreated, rcpt)
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["attr"]
	attr, ok := models.ParseAttribute(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown attribute %q", name))
		return
	}
	counts := s.sess.Counts(attr)
	writeJSON(w, http.StatusOK, map[string]any{
		"attribute": attr,
		"total":     counts.Total(),
		"counts":    counts,
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	format, err := render.ParseFormat(vars["format"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	attr, err := render.ChartAttribute(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	key := fmt.Sprintf("%s:%s:%d", name, format, s.sess.Generation())
	data, found := s.charts.Get(key)
	if !found {
		img, err := render.Chart(name, s.sess.Counts(attr), format)
		if err != nil {
			slog.Warn("chart render failed", "chart", name, "format", format, "err", err)
			writeError(w, http.StatusInternalServerError, "chart render failed")
			return
		}
		s.charts.SetDefault(key, img)
		data = img
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data.([]byte))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	st, err := s.sess.Refresh(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   redaction.Redact(err.Error()),
			"dataset": st,
		})
		return
	}
	s.charts.Flush()
	writeJSON(w, http.StatusOK, map[string]any{"dataset": st})
}
