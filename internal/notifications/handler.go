package notifications

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bissquit/postmortem-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Pagination constants.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Handler handles HTTP requests for the notifications module.
type Handler struct {
	service *Service
}

// NewHandler creates a new notifications handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers notification routes for authenticated users.
// All routes operate on the requesting user's own notifications.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/unread-count", h.UnreadCount)
		r.Post("/read-all", h.MarkAllRead)
		r.Post("/{id}/read", h.MarkRead)
	})
}

// List handles GET /notifications request.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, MaxListLimit)
	}

	result, err := h.service.ListByUser(r.Context(), httputil.GetUserID(r.Context()), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// UnreadCountResponse carries the unread notifications counter.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// UnreadCount handles GET /notifications/unread-count request.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountUnread(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, UnreadCountResponse{Count: count})
}

// MarkRead handles POST /notifications/{id}/read request.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id"), httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /notifications/read-all request.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAllRead(r.Context(), httputil.GetUserID(r.Context())); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotificationNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwned):
		httputil.Error(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
