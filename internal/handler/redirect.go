package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linksnip/linksnip/internal/service"
)

// RedirectHandler handles short link redirect requests.
type RedirectHandler struct {
	svc    *service.LinkService
	logger *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(svc *service.LinkService, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{
		svc:    svc,
		logger: logger,
	}
}

// Redirect handles GET /{shortID}. The visit is counted in the same
// operation that resolves the destination.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")
	if shortID == "" {
		h.writeError(w, http.StatusNotFound, "Short URL not found")
		return
	}

	start := time.Now()

	link, err := h.svc.ResolveAndRedirect(r.Context(), shortID)
	duration := time.Since(start)

	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound):
			h.logger.Info("redirect_not_found",
				"short_id", shortID,
				"duration_ms", float64(duration.Microseconds())/1000,
			)
			h.writeError(w, http.StatusNotFound, "Short URL not found")
		default:
			h.logger.Error("redirect_error",
				"short_id", shortID,
				"error", err,
				"duration_ms", float64(duration.Microseconds())/1000,
			)
			h.writeError(w, http.StatusInternalServerError, "An internal error occurred")
		}
		return
	}

	h.logger.Info("redirect_success",
		"short_id", shortID,
		"visit_count", link.VisitCount,
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "private, max-age=0")

	http.Redirect(w, r, link.OriginalURL, http.StatusMovedPermanently)
}

// writeError writes a JSON error response for redirect failures.
func (h *RedirectHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=0")
	writeError(w, status, message)
}
