package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Pagination constants.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Handler handles HTTP requests for the audit module.
type Handler struct {
	service *Service
}

// NewHandler creates a new audit handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes registers audit log routes. The router is expected to
// enforce the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orgs/{orgID}/audit-log", h.ListByOrg)
	r.Get("/audit-log/{entityKind}/{entityID}", h.ListByEntity)
}

// ListByOrg handles GET /orgs/{orgID}/audit-log request.
func (h *Handler) ListByOrg(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}

	result, err := h.service.ListByOrg(r.Context(), chi.URLParam(r, "orgID"), limit)
	if err != nil {
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// ListByEntity handles GET /audit-log/{entityKind}/{entityID} request.
func (h *Handler) ListByEntity(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}

	entity := domain.EntityRef{
		Kind: domain.EntityKind(chi.URLParam(r, "entityKind")),
		ID:   chi.URLParam(r, "entityID"),
	}
	result, err := h.service.ListByEntity(r.Context(), entity, limit)
	if err != nil {
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

func (h *Handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return 0, false
		}
		limit = min(parsed, MaxListLimit)
	}
	return limit, true
}
