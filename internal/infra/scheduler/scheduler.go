package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"okr_planning_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const autoRemindJobTimeout = 5 * time.Minute

// AutoReminder is the reminder run the scheduler triggers.
type AutoReminder interface {
	RunAutoReminders(ctx context.Context) (app.ReminderRunSummary, error)
}

// ReminderScheduler triggers automatic planning reminders on a cron spec. It holds no
// reminder logic of its own; the same run can be triggered by the `remind` command.
type ReminderScheduler struct {
	cronEngine         *cron.Cron
	reminders          AutoReminder
	logger             *logrus.Entry
	cronSpecAutoRemind string

	mu      sync.Mutex
	running bool
}

func NewReminderScheduler(reminders AutoReminder, logger *logrus.Entry, cronSpecAutoRemind string) *ReminderScheduler {
	return &ReminderScheduler{
		// UTC so day offsets match the UTC dates used for planning deadlines.
		cronEngine:         cron.New(cron.WithLocation(time.UTC)),
		reminders:          reminders,
		logger:             logger.WithField("component", "scheduler"),
		cronSpecAutoRemind: cronSpecAutoRemind,
	}
}

func (s *ReminderScheduler) Start() error {
	s.logger.Info("Starting reminder scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecAutoRemind, func() {
		s.logger.Info("Cron job triggered for automatic planning reminders.")
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("could not add automatic reminder cron job %q: %w", s.cronSpecAutoRemind, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpecAutoRemind).Info("Reminder scheduler started.")
	return nil
}

// RunOnce executes one reminder run unless a previous one is still going.
func (s *ReminderScheduler) RunOnce(parent context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Previous automatic reminder run still in progress, skipping.")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(parent, autoRemindJobTimeout)
	defer cancel()

	summary, err := s.reminders.RunAutoReminders(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during automatic reminder run")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"periods_checked":  summary.PeriodsChecked,
		"periods_reminded": summary.PeriodsReminded,
		"sent":             summary.Sent,
		"failed":           summary.Failed,
		"skipped":          summary.Skipped,
	}).Info("Automatic reminder run finished.")
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
