package digests

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bissquit/postmortem-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

const (
	DefaultListLimit = 12
	MaxListLimit     = 52
)

// Handler handles HTTP requests for the digests module.
type Handler struct {
	service *Service
}

// NewHandler creates a new digests handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers digest routes for authenticated users.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/orgs/{orgID}/digests", h.ListByOrg)
	r.Get("/digests/{id}", h.GetByID)
}

// GetByID handles GET /digests/{id} request.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	digest, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, digest)
}

// ListByOrg handles GET /orgs/{orgID}/digests request.
func (h *Handler) ListByOrg(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, MaxListLimit)
	}

	result, err := h.service.ListByOrg(r.Context(), chi.URLParam(r, "orgID"), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDigestNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
