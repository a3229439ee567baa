package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bissquit/postmortem-garden/internal/config"
	"github.com/bissquit/postmortem-garden/internal/pkg/ctxlog"
	"github.com/robfig/cron/v3"
)

// Scheduler drives the automation engine on its cron schedules. All
// schedules are evaluated in UTC.
type Scheduler struct {
	engine *Engine
	cron   *cron.Cron
	cfg    config.AutomationConfig
	logger *slog.Logger
}

// NewScheduler creates a scheduler for the engine.
func NewScheduler(engine *Engine, cfg config.AutomationConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine: engine,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the three jobs and starts the cron loop. The escalation
// job runs on a fixed interval; reminders and the weekly digest run on
// their cron expressions.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context) error
	}{
		{fmt.Sprintf("@every %s", s.cfg.EscalationInterval), "escalation", s.engine.RunEscalation},
		{s.cfg.RemindersCron, "reminders", s.engine.RunReminders},
		{s.cfg.DigestCron, "digest", s.engine.RunDigest},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			ctx := ctxlog.WithLogger(context.Background(), s.logger)
			s.logger.Info("automation job started", "job", job.name)
			if err := job.run(ctx); err != nil {
				s.logger.Error("automation job finished with errors", "job", job.name, "error", err)
				return
			}
			s.logger.Info("automation job finished", "job", job.name)
		})
		if err != nil {
			return fmt.Errorf("schedule %s job: %w", job.name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("automation scheduler started",
		"escalation_interval", s.cfg.EscalationInterval.String(),
		"reminders_cron", s.cfg.RemindersCron,
		"digest_cron", s.cfg.DigestCron,
	)
	return nil
}

// Stop stops the cron loop and waits for in-flight jobs to complete.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("automation scheduler stopped")
}
