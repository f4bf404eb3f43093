package app

import (
	"context"
	"fmt"
	"time"

	"okr_planning_bot/internal/domain/period"

	"github.com/sirupsen/logrus"
)

// ReminderRunSummary is what one automatic reminder run did.
type ReminderRunSummary struct {
	PeriodsChecked  int
	PeriodsReminded int
	Sent            int
	Failed          int
	Skipped         int // already reminded today
}

// ReminderService sends the day-offset reminders configured on a period's planning setup.
// It goes through the same status computation and SendNudge path as a manual nudge.
type ReminderService struct {
	periods  period.Repository
	statuses *StatusService
	nudges   *NudgeService
	now      func() time.Time
	log      *logrus.Entry
}

func NewReminderService(pr period.Repository, statuses *StatusService, nudges *NudgeService, log *logrus.Entry) *ReminderService {
	return &ReminderService{
		periods:  pr,
		statuses: statuses,
		nudges:   nudges,
		now:      time.Now,
		log:      log.WithField("service", "reminder"),
	}
}

// WithClock replaces the time source deciding which offsets are due.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// DaysUntil counts calendar days from now to deadline, both taken as UTC dates.
func DaysUntil(now, deadline time.Time) int {
	from := truncateDay(now.UTC())
	to := truncateDay(deadline.UTC())
	return int(to.Sub(from).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RunAutoReminders reminds incomplete organizations of every running planning whose
// deadline is exactly one of its configured day offsets away. Organizations already
// reminded today are skipped, so a rerun on the same day adds no rows.
func (s *ReminderService) RunAutoReminders(ctx context.Context) (summary ReminderRunSummary, err error) {
	defer func() { recordAutoReminderRun(err) }()

	periods, err := s.periods.ListPlanningInProgress(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list periods with running planning: %w", err)
	}
	now := s.now().UTC()
	today := truncateDay(now)

	for _, p := range periods {
		summary.PeriodsChecked++
		if !p.AcceptsSubmissions() || p.PlanningDeadlineAt == nil {
			continue
		}
		daysLeft := DaysUntil(now, *p.PlanningDeadlineAt)
		if !p.RemindsOn(daysLeft) {
			continue
		}
		logCtx := s.log.WithFields(logrus.Fields{
			"company_id":  p.CompanyID,
			"period_code": p.Code,
			"days_left":   daysLeft,
		})

		actor := SystemActor(p.CompanyID)
		report, err := s.statuses.ComputeOrgStatuses(ctx, actor, p.ID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to compute statuses for automatic reminder")
			continue
		}
		targets := make([]OrgStatus, 0, len(report.Orgs))
		for _, t := range SelectTargets(report.Orgs, TargetIncomplete) {
			if t.LastRemindedAt != nil && !t.LastRemindedAt.UTC().Before(today) {
				summary.Skipped++
				continue
			}
			targets = append(targets, t)
		}
		if len(targets) == 0 {
			logCtx.Info("No organizations due for an automatic reminder")
			continue
		}

		res, err := s.nudges.SendNudge(ctx, actor, report.Period, targets, p.PlanningMessage)
		if err != nil {
			logCtx.WithError(err).Error("Automatic reminder was rejected")
			continue
		}
		summary.PeriodsReminded++
		summary.Sent += res.SentCount
		summary.Failed += len(res.Failures)
		logCtx.WithFields(logrus.Fields{
			"sent":   res.SentCount,
			"failed": len(res.Failures),
		}).Info("Automatic reminder sent")
	}
	return summary, nil
}
