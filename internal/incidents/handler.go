package incidents

import (
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

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	renderer  *Renderer
	profiles  ProfileReader
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service, renderer *Renderer, profiles ProfileReader) *Handler {
	return &Handler{
		service:   service,
		renderer:  renderer,
		profiles:  profiles,
		validator: validator.New(),
	}
}

// RegisterRoutes registers incident routes for authenticated users. Write
// operations additionally require the editor role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	editor := httputil.RequireRole(domain.RoleEditor)

	r.Route("/orgs/{orgID}/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.With(editor).Post("/", h.CreateIncident)
	})

	r.Route("/incidents/{id}", func(r chi.Router) {
		r.Get("/", h.GetIncident)
		r.With(editor).Patch("/", h.UpdateIncident)
		r.With(editor).Delete("/", h.DeleteIncident)
		r.With(editor).Post("/status", h.SetStatus)
		r.Get("/timeline", h.ListTimeline)
		r.With(editor).Post("/timeline", h.AddTimelineEvent)
		r.With(editor).Post("/share", h.EnableSharing)
		r.With(editor).Delete("/share", h.DisableSharing)
		r.Get("/postmortem", h.GetPostmortem)
		r.Get("/postmortem.md", h.GetPostmortemMarkdown)
	})
}

// RegisterPublicRoutes registers the unauthenticated share-token routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/postmortems/{token}", h.GetSharedPostmortem)
	r.Get("/postmortems/{token}.md", h.GetSharedPostmortemMarkdown)
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	Title         string     `json:"title" validate:"required,min=1,max=255"`
	Severity      string     `json:"severity" validate:"required,oneof=SEV1 SEV2 SEV3 SEV4"`
	Service       string     `json:"service" validate:"required,min=1,max=255"`
	StartTime     time.Time  `json:"start_time" validate:"required"`
	EndTime       *time.Time `json:"end_time"`
	ImpactSummary string     `json:"impact_summary" validate:"required"`
	RootCause     *string    `json:"root_cause"`
	OwnerID       string     `json:"owner_id"`
}

// UpdateIncidentRequest represents the request body for a partial incident update.
type UpdateIncidentRequest struct {
	Title         *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Severity      *string    `json:"severity" validate:"omitempty,oneof=SEV1 SEV2 SEV3 SEV4"`
	Service       *string    `json:"service" validate:"omitempty,min=1,max=255"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	ImpactSummary *string    `json:"impact_summary"`
	RootCause     *string    `json:"root_cause"`
	OwnerID       *string    `json:"owner_id"`
}

// SetStatusRequest represents the request body for a status transition.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=OPEN MITIGATED CLOSED"`
}

// AddTimelineEventRequest represents the request body for a timeline event.
type AddTimelineEventRequest struct {
	OccurredAt time.Time `json:"occurred_at" validate:"required"`
	Message    string    `json:"message" validate:"required,min=1"`
	Actor      string    `json:"actor"`
}

// CreateIncident handles POST /orgs/{orgID}/incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
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

	incident := &domain.Incident{
		OrgID:         chi.URLParam(r, "orgID"),
		Title:         req.Title,
		Severity:      domain.Severity(req.Severity),
		Service:       req.Service,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		ImpactSummary: req.ImpactSummary,
		RootCause:     req.RootCause,
		OwnerID:       req.OwnerID,
	}
	if err := h.service.CreateIncident(r.Context(), incident, actor); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// ListIncidents handles GET /orgs/{orgID}/incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filter := IncidentFilter{
		Status:   domain.IncidentStatus(r.URL.Query().Get("status")),
		Severity: domain.Severity(r.URL.Query().Get("severity")),
	}

	result, err := h.service.ListIncidents(r.Context(), chi.URLParam(r, "orgID"), filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// UpdateIncident handles PATCH /incidents/{id} request.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	var req UpdateIncidentRequest
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

	input := UpdateIncidentInput{
		Title:         req.Title,
		Service:       req.Service,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		ImpactSummary: req.ImpactSummary,
		RootCause:     req.RootCause,
		OwnerID:       req.OwnerID,
	}
	if req.Severity != nil {
		severity := domain.Severity(*req.Severity)
		input.Severity = &severity
	}

	incident, err := h.service.UpdateIncident(r.Context(), chi.URLParam(r, "id"), input, actor)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// SetStatus handles POST /incidents/{id}/status request.
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

	incident, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), domain.IncidentStatus(req.Status), actor)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// DeleteIncident handles DELETE /incidents/{id} request.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.DeleteIncident(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTimeline handles GET /incidents/{id}/timeline request.
func (h *Handler) ListTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListTimelineEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, events)
}

// AddTimelineEvent handles POST /incidents/{id}/timeline request.
func (h *Handler) AddTimelineEvent(w http.ResponseWriter, r *http.Request) {
	var req AddTimelineEventRequest
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

	event := &domain.TimelineEvent{
		IncidentID: chi.URLParam(r, "id"),
		OccurredAt: req.OccurredAt,
		Message:    req.Message,
		Actor:      req.Actor,
	}
	if err := h.service.AddTimelineEvent(r.Context(), event, actor); err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, event)
}

// ShareResponse carries the public share token of an incident.
type ShareResponse struct {
	ShareToken string `json:"share_token"`
}

// EnableSharing handles POST /incidents/{id}/share request.
func (h *Handler) EnableSharing(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	token, err := h.service.EnableSharing(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, ShareResponse{ShareToken: token})
}

// DisableSharing handles DELETE /incidents/{id}/share request.
func (h *Handler) DisableSharing(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.service.DisableSharing(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPostmortem handles GET /incidents/{id}/postmortem request.
func (h *Handler) GetPostmortem(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Postmortem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, view)
}

// GetPostmortemMarkdown handles GET /incidents/{id}/postmortem.md request.
func (h *Handler) GetPostmortemMarkdown(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Postmortem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeMarkdown(w, view)
}

// GetSharedPostmortem handles GET /postmortems/{token} request (public).
func (h *Handler) GetSharedPostmortem(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.PostmortemByShareToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, view)
}

// GetSharedPostmortemMarkdown handles GET /postmortems/{token}.md request (public).
func (h *Handler) GetSharedPostmortemMarkdown(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.PostmortemByShareToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeMarkdown(w, view)
}

func (h *Handler) writeMarkdown(w http.ResponseWriter, view *PostmortemView) {
	doc, err := h.renderer.Render(view)
	if err != nil {
		slog.Error("render postmortem", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (h *Handler) actor(r *http.Request) (*domain.Profile, error) {
	return h.profiles.GetProfileByID(r.Context(), httputil.GetUserID(r.Context()))
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrIncidentNotFound), errors.Is(err, identity.ErrProfileNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidSeverity), errors.Is(err, ErrInvalidStatus):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRootCauseRequired):
		httputil.Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
