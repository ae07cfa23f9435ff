package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/config"
)

const reportTimeout = 2 * time.Minute

// Reporter builds the weekly campaign report of a project.
type Reporter interface {
	WeeklyReport(ctx context.Context, projectID string) (string, error)
}

// Notifier delivers the report to the farm manager.
type Notifier interface {
	NotifyManager(ctx context.Context, message string) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	reporter Reporter
	notifier Notifier
	cfg      config.ReportingConfig
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, reporter Reporter, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		reporter: reporter,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start registers the weekly report and starts the cron loop. Nothing is
// scheduled when no project is configured.
func (s *Scheduler) Start() error {
	if s.cfg.ProjectID == "" {
		s.logger.Warn("no reporting project configured, weekly report disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sendWeeklyReport); err != nil {
		return fmt.Errorf("schedule weekly report %q: %w", s.cfg.CronSchedule, err)
	}

	s.logger.Info("starting scheduler",
		zap.String("schedule", s.cfg.CronSchedule),
		zap.String("timezone", s.cfg.Timezone),
		zap.String("project_id", s.cfg.ProjectID),
	)
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running report.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendWeeklyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err := s.RunWeeklyReport(ctx); err != nil {
		s.logger.Error("weekly report failed", zap.Error(err))
	}
}

// RunWeeklyReport snapshots the current campaign and sends its summary.
func (s *Scheduler) RunWeeklyReport(ctx context.Context) error {
	s.logger.Info("generating weekly report", zap.String("project_id", s.cfg.ProjectID))

	report, err := s.reporter.WeeklyReport(ctx, s.cfg.ProjectID)
	if err != nil {
		return fmt.Errorf("generate weekly report: %w", err)
	}

	if err := s.notifier.NotifyManager(ctx, report); err != nil {
		return fmt.Errorf("send weekly report: %w", err)
	}

	s.logger.Info("weekly report sent successfully")
	return nil
}
