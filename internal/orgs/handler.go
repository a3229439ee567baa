package orgs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/identity"
	"github.com/bissquit/postmortem-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the orgs module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new orgs handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers org routes for authenticated users. Creating,
// updating and deleting orgs and managing membership require the editor
// role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	editor := httputil.RequireRole(domain.RoleEditor)

	r.Route("/orgs", func(r chi.Router) {
		r.Get("/", h.ListOrgs)
		r.With(editor).Post("/", h.CreateOrg)
		r.Get("/{slug}", h.GetOrg)
		r.With(editor).Patch("/{slug}", h.UpdateOrg)
		r.With(editor).Delete("/{slug}", h.DeleteOrg)
		r.Get("/{slug}/members", h.ListMembers)
		r.With(editor).Post("/{slug}/members", h.AddMember)
		r.With(editor).Delete("/{slug}/members/{profileID}", h.RemoveMember)
	})
}

// CreateOrgRequest represents the request body for creating an org.
type CreateOrgRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Slug string `json:"slug" validate:"omitempty,min=1,max=255"`
}

// UpdateOrgRequest represents the request body for renaming an org.
type UpdateOrgRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// AddMemberRequest represents the request body for adding an org member.
type AddMemberRequest struct {
	ProfileID string `json:"profile_id" validate:"required"`
}

// CreateOrg handles POST /orgs request.
func (h *Handler) CreateOrg(w http.ResponseWriter, r *http.Request) {
	var req CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	org, err := h.service.CreateOrg(r.Context(), req.Name, req.Slug, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, org)
}

// GetOrg handles GET /orgs/{slug} request.
func (h *Handler) GetOrg(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, org)
}

// ListOrgs handles GET /orgs request.
func (h *Handler) ListOrgs(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListOrgs(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// UpdateOrg handles PATCH /orgs/{slug} request.
func (h *Handler) UpdateOrg(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	updated, err := h.service.UpdateOrg(r.Context(), org.ID, req.Name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, updated)
}

// DeleteOrg handles DELETE /orgs/{slug} request.
func (h *Handler) DeleteOrg(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.DeleteOrg(r.Context(), org.ID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /orgs/{slug}/members request.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	members, err := h.service.ListMembers(r.Context(), org.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, members)
}

// AddMember handles POST /orgs/{slug}/members request.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.AddMember(r.Context(), org.ID, req.ProfileID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember handles DELETE /orgs/{slug}/members/{profileID} request.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrgBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.RemoveMember(r.Context(), org.ID, chi.URLParam(r, "profileID")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrgNotFound), errors.Is(err, ErrMemberNotFound),
		errors.Is(err, identity.ErrProfileNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlugExists):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidSlug):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrSystemProfile):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotMember):
		httputil.Error(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
