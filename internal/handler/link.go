package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linkcut/linkcut/internal/handler/dto"
	"github.com/linkcut/linkcut/internal/repository"
	"github.com/linkcut/linkcut/internal/service"
)

// LinkHandler handles HTTP requests for link operations.
type LinkHandler struct {
	svc    *service.LinkService
	logger *slog.Logger
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(svc *service.LinkService, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{
		svc:    svc,
		logger: logger,
	}
}

// Shorten handles POST /links/shorten.
func (h *LinkHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req dto.ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	link, err := h.svc.CreateLink(r.Context(), identity.UserID, req.TargetURL)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_created",
		"link_id", link.ID,
		"code", link.Code,
		"owner_id", identity.UserID,
	)

	response := dto.ToLinkResponse(link, h.svc.BaseURL())
	writeJSON(w, http.StatusCreated, response)
}

// Get handles GET /links/{code}.
func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CODE", "Link code is required")
		return
	}

	link, err := h.svc.GetLink(r.Context(), identity, code)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := dto.ToLinkResponse(link, h.svc.BaseURL())
	writeJSON(w, http.StatusOK, response)
}

// List handles GET /links/my-links.
func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	cursor, limit := paginationParams(r)

	result, err := h.svc.ListLinks(r.Context(), identity.UserID, cursor, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := dto.ToLinkListResponse(result.Links, h.svc.BaseURL(), result.NextCursor, result.HasMore)
	writeJSON(w, http.StatusOK, response)
}

// ListAll handles GET /admin/links. Routed behind RequireAdmin.
func (h *LinkHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	cursor, limit := paginationParams(r)

	result, err := h.svc.ListAllLinks(r.Context(), cursor, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := dto.ToLinkListResponse(result.Links, h.svc.BaseURL(), result.NextCursor, result.HasMore)
	writeJSON(w, http.StatusOK, response)
}

// Update handles PATCH /links/{code}.
func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CODE", "Link code is required")
		return
	}

	var req dto.UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	link, err := h.svc.UpdateLink(r.Context(), identity, code, req.TargetURL)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_updated",
		"link_id", link.ID,
		"code", link.Code,
	)

	response := dto.ToLinkResponse(link, h.svc.BaseURL())
	writeJSON(w, http.StatusOK, response)
}

// Delete handles DELETE /links/{code}.
func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CODE", "Link code is required")
		return
	}

	if err := h.svc.DeleteLink(r.Context(), identity, code); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_deleted", "code", code)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *LinkHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You do not own this link")
	case errors.Is(err, service.ErrInvalidTarget):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_TARGET", "Target must be a valid http or https URL")
	case errors.Is(err, service.ErrURLTooLong):
		writeError(w, http.StatusUnprocessableEntity, "URL_TOO_LONG", "Target URL exceeds maximum length")
	case errors.Is(err, service.ErrQuotaExceeded):
		writeError(w, http.StatusForbidden, "QUOTA_EXCEEDED", "Link creation quota exhausted for this billing period")
	case errors.Is(err, service.ErrSubscriptionLapsed):
		writeError(w, http.StatusForbidden, "SUBSCRIPTION_LAPSED", "Subscription has lapsed")
	case errors.Is(err, repository.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
	case errors.Is(err, service.ErrCapacityExhausted):
		writeError(w, http.StatusServiceUnavailable, "CAPACITY_EXHAUSTED", "Could not allocate a short code, try again")
	case errors.Is(err, service.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service temporarily unavailable")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// paginationParams extracts cursor and limit query parameters.
func paginationParams(r *http.Request) (string, int) {
	query := r.URL.Query()

	limit := 20
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	return query.Get("cursor"), limit
}
