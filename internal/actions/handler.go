package actions

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/identity"
	"github.com/bissquit/postmortem-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// ProfileReader resolves the acting profile for audit attribution.
type ProfileReader interface {
	GetProfileByID(ctx context.Context, id string) (*domain.Profile, error)
}

// Handler handles HTTP requests for the actions module.
type Handler struct {
	service   *Service
	profiles  ProfileReader
	validator *validator.Validate
}

// NewHandler creates a new actions handler.
func NewHandler(service *Service, profiles ProfileReader) *Handler {
	return &Handler{
		service:   service,
		profiles:  profiles,
		validator: validator.New(),
	}
}

// RegisterRoutes registers action item routes for authenticated users.
// Write operations additionally require the editor role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	editor := httputil.RequireRole(domain.RoleEditor)

	r.Get("/orgs/{orgID}/action-items", h.ListByOrg)
	r.Get("/incidents/{incidentID}/action-items", h.ListByIncident)
	r.With(editor).Post("/incidents/{incidentID}/action-items", h.CreateActionItem)

	r.Route("/action-items/{id}", func(r chi.Router) {
		r.Get("/", h.GetActionItem)
		r.With(editor).Patch("/", h.UpdateActionItem)
		r.With(editor).Delete("/", h.DeleteActionItem)
		r.With(editor).Post("/status", h.SetStatus)
	})
}

// CreateActionItemRequest represents the request body for creating an action item.
type CreateActionItemRequest struct {
	Title    string    `json:"title" validate:"required,min=1,max=255"`
	OwnerID  string    `json:"owner_id"`
	Priority string    `json:"priority" validate:"required,oneof=P0 P1 P2"`
	DueDate  time.Time `json:"due_date" validate:"required"`
}

// UpdateActionItemRequest represents the request body for a partial update.
type UpdateActionItemRequest struct {
	Title    *string    `json:"title" validate:"omitempty,min=1,max=255"`
	OwnerID  *string    `json:"owner_id"`
	Priority *string    `json:"priority" validate:"omitempty,oneof=P0 P1 P2"`
	DueDate  *time.Time `json:"due_date"`
}

// SetStatusRequest represents the request body for a status transition.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=OPEN IN_PROGRESS DONE"`
}

// CreateActionItem handles POST /incidents/{incidentID}/action-items request.
func (h *Handler) CreateActionItem(w http.ResponseWriter, r *http.Request) {
	var req CreateActionItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	actor, err := h.actor(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	item := &domain.ActionItem{
		IncidentID: chi.URLParam(r, "incidentID"),
		Title:      req.Title,
		OwnerID:    req.OwnerID,
		Priority:   domain.ActionPriority(req.Priority),
		DueDate:    req.DueDate,
	}
	if err := h.service.CreateActionItem(r.Context(), item, actor); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, item)
}

// GetActionItem handles GET /action-items/{id} request.
func (h *Handler) GetActionItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetActionItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, item)
}

// ListByIncident handles GET /incidents/{incidentID}/action-items request.
func (h *Handler) ListByIncident(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListActionItemsByIncident(r.Context(), chi.URLParam(r, "incidentID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, items)
}

// ListByOrg handles GET /orgs/{orgID}/action-items request.
func (h *Handler) ListByOrg(w http.ResponseWriter, r *http.Request) {
	filter := ActionItemFilter{
		Status:  domain.ActionStatus(r.URL.Query().Get("status")),
		OwnerID: r.URL.Query().Get("owner_id"),
	}

	items, err := h.service.ListActionItemsByOrg(r.Context(), chi.URLParam(r, "orgID"), filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, items)
}

// UpdateActionItem handles PATCH /action-items/{id} request.
func (h *Handler) UpdateActionItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateActionItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	actor, err := h.actor(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	input := UpdateActionItemInput{
		Title:   req.Title,
		OwnerID: req.OwnerID,
		DueDate: req.DueDate,
	}
	if req.Priority != nil {
		priority := domain.ActionPriority(*req.Priority)
		input.Priority = &priority
	}

	item, err := h.service.UpdateActionItem(r.Context(), chi.URLParam(r, "id"), input, actor)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, item)
}

// SetStatus handles POST /action-items/{id}/status request.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	actor, err := h.actor(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	item, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), domain.ActionStatus(req.Status), actor)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, item)
}

// DeleteActionItem handles DELETE /action-items/{id} request.
func (h *Handler) DeleteActionItem(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.DeleteActionItem(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actor(r *http.Request) (*domain.Profile, error) {
	return h.profiles.GetProfileByID(r.Context(), httputil.GetUserID(r.Context()))
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrActionItemNotFound), errors.Is(err, ErrIncidentNotFound),
		errors.Is(err, identity.ErrProfileNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidPriority), errors.Is(err, ErrInvalidStatus):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
