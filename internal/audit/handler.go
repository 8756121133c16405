package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/weighops/weighops/internal/authz"
	"github.com/weighops/weighops/internal/platform/httpx"
)

const maxExportRange = 90 * 24 * time.Hour

// Handler serves the audit timeline.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	exporter  CSVExporter
	authorize *authz.Authorizer
}

// NewHandler builds an audit handler.
func NewHandler(logger *slog.Logger, service *Service, authorize *authz.Authorizer) *Handler {
	return &Handler{logger: logger, service: service, authorize: authorize}
}

// MountRoutes registers the timeline routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authorize.Require("audit.view"))
		r.Get("/", h.timeline)
		r.Get("/export", h.export)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	// Unbounded exports keep the query cheap enough to answer inline.
	if filters.From.IsZero() {
		filters.From = time.Now().Add(-maxExportRange)
	}
	if !filters.To.IsZero() && filters.To.Sub(filters.From) > maxExportRange {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "export range exceeds 90 days")
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload, err := h.exporter.WriteCSV(rows)
	if err != nil {
		h.logger.Error("audit export encode", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	var f TimelineFilters
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return TimelineFilters{}, fmt.Errorf("invalid from: %s", v)
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return TimelineFilters{}, fmt.Errorf("invalid to: %s", v)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return TimelineFilters{}, fmt.Errorf("to precedes from")
	}
	f.Actor = q.Get("actor")
	f.Entity = q.Get("entity")
	f.Action = q.Get("action")
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	return f, nil
}
