package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linkcut/linkcut/internal/service"
)

// StatsHandler serves per-link statistics and the owner dashboard.
type StatsHandler struct {
	svc    *service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		svc:    svc,
		logger: logger,
	}
}

// LinkStats handles GET /links/{code}/stats?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *StatsHandler) LinkStats(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CODE", "Link code is required")
		return
	}

	from, ok := parseDateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to")
	if !ok {
		return
	}

	stats, err := h.svc.LinkStats(r.Context(), identity, code, from, to)
	if err != nil {
		h.handleStatsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Dashboard handles GET /stats/dashboard.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	stats, err := h.svc.Dashboard(r.Context(), identity.UserID)
	if err != nil {
		h.handleStatsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleStatsError maps stats service errors to HTTP responses.
func (h *StatsHandler) handleStatsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You do not own this link")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// parseDateParam reads an optional ISO date query parameter.
// Responds 400 and returns ok=false on a malformed value.
func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}

	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE",
			"Query parameter '"+name+"' must be formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return t.UTC(), true
}
