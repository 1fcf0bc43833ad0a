package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/handler/dto"
	"github.com/linksnip/linksnip/internal/service"
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

// Shorten handles POST /shorten. The owner comes from the session, never
// from the request body.
func (h *LinkHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "You are not logged in. Please login to continue")
		return
	}

	var req dto.ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	link, err := h.svc.Shorten(r.Context(), user.ID, req.OriginalURL)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_created",
		"link_id", link.ID,
		"short_id", link.ShortID,
		"owner_id", link.OwnerID,
	)

	writeJSON(w, http.StatusCreated, dto.LinkEnvelope{
		Status: "success",
		Data:   dto.LinkData{URL: dto.ToLinkResponse(link, h.svc.BaseURL())},
	})
}

// List handles GET / for an authenticated caller's own links.
func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "You are not logged in. Please login to continue")
		return
	}

	links, err := h.svc.ListForOwner(r.Context(), user.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLinkListEnvelope(links, h.svc.BaseURL()))
}

// handleServiceError maps link service errors to HTTP responses.
func (h *LinkHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "Please provide a valid URL")
	case errors.Is(err, service.ErrLinkNotFound):
		writeError(w, http.StatusNotFound, "Short URL not found")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
