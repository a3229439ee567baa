package automation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bissquit/postmortem-garden/internal/orgs"
	"github.com/bissquit/postmortem-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Pagination constants.
const (
	DefaultRunsLimit = 10
	MaxRunsLimit     = 100
)

// triggerLimiter rate-limits manual automation triggers per org.
type triggerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newTriggerLimiter(perMinute int) *triggerLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &triggerLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *triggerLimiter) allow(orgID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[orgID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[orgID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// Handler handles HTTP requests for the automation module: manual per-org
// job triggers and the runs listing. All routes are admin-only at the
// router level.
type Handler struct {
	engine  *Engine
	limiter *triggerLimiter
}

// NewHandler creates a new automation handler. triggersPerMinute bounds how
// often each org's jobs may be triggered manually.
func NewHandler(engine *Engine, triggersPerMinute int) *Handler {
	return &Handler{
		engine:  engine,
		limiter: newTriggerLimiter(triggersPerMinute),
	}
}

// RegisterAdminRoutes registers the automation routes.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/orgs/{orgID}/automations", func(r chi.Router) {
		r.Get("/runs", h.ListRuns)
		r.Post("/escalation/run", h.trigger(h.engine.RunEscalationForOrg))
		r.Post("/reminders/run", h.trigger(h.engine.RunRemindersForOrg))
		r.Post("/digest/run", h.trigger(h.engine.RunDigestForOrg))
	})
}

// TriggerResponse reports a completed manual trigger.
type TriggerResponse struct {
	Triggered bool `json:"triggered"`
}

// trigger runs one job for the org synchronously. The run outcome is
// recorded in automation_runs either way.
func (h *Handler) trigger(run func(ctx context.Context, orgID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID := chi.URLParam(r, "orgID")

		if !h.limiter.allow(orgID) {
			httputil.Error(w, http.StatusTooManyRequests, "trigger rate limit exceeded")
			return
		}

		if err := run(r.Context(), orgID); err != nil {
			h.handleServiceError(w, err)
			return
		}

		httputil.Success(w, http.StatusOK, TriggerResponse{Triggered: true})
	}
}

// ListRuns handles GET /orgs/{orgID}/automations/runs request.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, MaxRunsLimit)
	}

	runs, err := h.engine.runs.ListRunsByOrg(r.Context(), chi.URLParam(r, "orgID"), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, runs)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orgs.ErrOrgNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
