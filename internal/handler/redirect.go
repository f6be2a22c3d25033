package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linkcut/linkcut/internal/analytics"
	"github.com/linkcut/linkcut/internal/service"
)

// RedirectHandler handles redirect requests.
type RedirectHandler struct {
	svc       *service.LinkService
	publisher *analytics.Publisher
	logger    *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(svc *service.LinkService, publisher *analytics.Publisher, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{
		svc:       svc,
		publisher: publisher,
		logger:    logger,
	}
}

// Redirect handles GET /{code} for URL redirection.
// Always 302; targets are mutable so permanent redirects would let
// intermediaries cache a stale destination.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
		return
	}

	start := time.Now()

	link, cacheHit, err := h.svc.ResolveRedirect(r.Context(), code)
	duration := time.Since(start)

	if err != nil {
		h.handleRedirectError(w, code, err, duration)
		return
	}

	// Publish the click event asynchronously (fire-and-forget).
	// The redirect never waits on accounting.
	if h.publisher != nil {
		clickedAt := time.Now()
		event := analytics.ClickEventPayload{
			Code:        code,
			LinkID:      link.ID,
			Referrer:    analytics.SanitizeReferrer(r.Header.Get("Referer")),
			UserAgent:   analytics.TruncateUserAgent(r.Header.Get("User-Agent")),
			VisitorHash: analytics.GenerateVisitorHash(clientIP(r), r.Header.Get("User-Agent"), clickedAt),
			CountryCode: analytics.ExtractCountryCode(r.Header.Get("CF-IPCountry")),
			ClickedAt:   clickedAt.UnixMilli(),
		}
		h.publisher.PublishAsync(event)
	}

	h.logger.Info("redirect_success",
		"code", code,
		"cache_hit", cacheHit,
		"referrer_domain", analytics.ExtractReferrerDomain(r.Header.Get("Referer")),
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	// Set security headers
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "private, max-age=0")

	http.Redirect(w, r, link.TargetURL, http.StatusFound)
}

// handleRedirectError handles errors during redirect resolution.
func (h *RedirectHandler) handleRedirectError(w http.ResponseWriter, code string, err error, duration time.Duration) {
	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		h.logger.Info("redirect_not_found",
			"code", code,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")

	case errors.Is(err, service.ErrUnavailable):
		// The store of record could not answer in time. Failing closed
		// beats redirecting to a guess.
		h.logger.Error("redirect_unavailable",
			"code", code,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service temporarily unavailable")

	default:
		h.logger.Error("redirect_error",
			"code", code,
			"error", err,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes a JSON error response for redirect failures.
func (h *RedirectHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	// Set security headers even on errors
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=0")

	writeError(w, status, code, message)
}

// clientIP extracts the client IP address from the request.
func clientIP(r *http.Request) string {
	// Check Cloudflare header first
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	// Check X-Forwarded-For
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// Take the first IP in the chain
		for i := 0; i < len(ip); i++ {
			if ip[i] == ',' {
				return ip[:i]
			}
		}
		return ip
	}
	// Check X-Real-IP
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	// Fall back to RemoteAddr
	return r.RemoteAddr
}
