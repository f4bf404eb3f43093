package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"okr_planning_bot/internal/domain/notification"
	"okr_planning_bot/internal/domain/org"
	"okr_planning_bot/internal/domain/period"
	"okr_planning_bot/internal/domain/role"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	nudgeTitle       = "OKR planning reminder"
	triggerManual    = "manual"
	triggerPlanning  = "planning_start"
	triggerScheduled = "scheduled"
)

// DispatchFailure is one target that could not be notified.
type DispatchFailure struct {
	OrgID   uuid.UUID
	OrgName string
	Reason  string
	Err     error
}

// DispatchResult reports a nudge batch. Failed targets can be retried selectively.
type DispatchResult struct {
	SentCount int
	Failures  []DispatchFailure
}

// Err returns a *PartialDispatchFailure when any target failed, nil otherwise.
func (r DispatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &PartialDispatchFailure{Attempted: r.SentCount + len(r.Failures), Failures: r.Failures}
}

// NudgeService writes reminder notifications to organization heads.
type NudgeService struct {
	notifications notification.Repository
	orgs          org.Directory
	roles         role.Directory
	authority     *RoleAuthority
	baseURL       string
	now           func() time.Time
	log           *logrus.Entry
}

func NewNudgeService(
	nr notification.Repository,
	od org.Directory,
	rd role.Directory,
	authority *RoleAuthority,
	planningBaseURL string,
	log *logrus.Entry,
) *NudgeService {
	return &NudgeService{
		notifications: nr,
		orgs:          od,
		roles:         rd,
		authority:     authority,
		baseURL:       strings.TrimRight(planningBaseURL, "/"),
		now:           time.Now,
		log:           log.WithField("service", "nudge"),
	}
}

// WithClock replaces the time source used to stamp notifications.
func (s *NudgeService) WithClock(now func() time.Time) *NudgeService {
	s.now = now
	return s
}

// SendNudge writes one reminder per target. Targets are expected to be pre-filtered by the
// caller; their status is not re-checked here. Each write stands alone: failures are
// collected in the result and never abort the batch. Repeated calls create repeated rows.
//
// Every target must be an organization of the caller's company, and a caller without
// company-wide scope may only target organizations it is assigned to. A single target
// failing either check rejects the call before anything is written. Recipients are the
// heads on record; head ids carried by the targets are ignored.
func (s *NudgeService) SendNudge(ctx context.Context, actor Actor, p *period.FiscalPeriod, targets []OrgStatus, message string) (DispatchResult, error) {
	assignments, err := s.authority.Authorize(ctx, actor, OpSendNudge)
	if err != nil {
		recordOperation(OpSendNudge, err)
		return DispatchResult{}, err
	}
	if p == nil || p.CompanyID != actor.CompanyID {
		err := fmt.Errorf("%w: period is not part of the caller's company", ErrNotFound)
		recordOperation(OpSendNudge, err)
		return DispatchResult{}, err
	}
	resolved, err := s.resolveTargets(ctx, actor, AuthorizedOrgIDs(assignments), targets)
	if err != nil {
		recordOperation(OpSendNudge, err)
		return DispatchResult{}, err
	}

	trigger := triggerManual
	if actor.IsSystem() {
		trigger = triggerScheduled
	}
	res := s.dispatch(ctx, actor, p, resolved, message, trigger)
	recordOperation(OpSendNudge, nil)
	return res, nil
}

// resolveTargets checks every target against the organization directory and replaces
// its head with the one on record.
func (s *NudgeService) resolveTargets(ctx context.Context, actor Actor, scope OrgScope, targets []OrgStatus) ([]OrgStatus, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	for _, t := range targets {
		o, err := s.orgs.GetByID(ctx, t.OrgID)
		switch {
		case errors.Is(err, org.ErrNotFound):
			return nil, fmt.Errorf("%w: organization %s", ErrNotFound, t.OrgID)
		case err != nil:
			return nil, fmt.Errorf("failed to load organization %s: %w", t.OrgID, err)
		}
		if o.CompanyID != actor.CompanyID || !scope.Includes(o.ID) {
			return nil, fmt.Errorf("%w: organization %s is outside the caller's scope", ErrNotAuthorized, t.OrgName)
		}
	}

	leaders, err := s.roles.ListLeaders(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization leaders: %w", err)
	}
	heads := pickHeads(leaders)
	out := make([]OrgStatus, len(targets))
	for i, t := range targets {
		t.HeadID = nil
		if headID := heads[t.OrgID]; headID != nil {
			_, err := s.roles.GetProfile(ctx, *headID)
			switch {
			case err == nil:
				t.HeadID = headID
			case !errors.Is(err, role.ErrProfileNotFound):
				return nil, fmt.Errorf("failed to load head of %s: %w", t.OrgName, err)
			}
		}
		out[i] = t
	}
	return out, nil
}

// dispatch is shared by manual nudges, planning start and scheduled reminders.
func (s *NudgeService) dispatch(ctx context.Context, actor Actor, p *period.FiscalPeriod, targets []OrgStatus, message, trigger string) DispatchResult {
	var res DispatchResult
	logCtx := s.log.WithFields(logrus.Fields{
		"period_code": p.Code,
		"trigger":     trigger,
		"targets":     len(targets),
	})

	for _, t := range targets {
		targetLog := logCtx.WithFields(logrus.Fields{"org_id": t.OrgID, "org_name": t.OrgName})
		if t.HeadID == nil {
			res.Failures = append(res.Failures, DispatchFailure{
				OrgID:   t.OrgID,
				OrgName: t.OrgName,
				Reason:  "organization has no head to notify",
				Err:     fmt.Errorf("%w: head of %s", ErrNotFound, t.OrgName),
			})
			recordNudge(trigger, false)
			targetLog.Warn("Skipping nudge, organization has no head")
			continue
		}

		n := s.buildNotification(actor, p, t, message)
		if err := s.notifications.Create(ctx, n); err != nil {
			res.Failures = append(res.Failures, DispatchFailure{
				OrgID:   t.OrgID,
				OrgName: t.OrgName,
				Reason:  "failed to store notification",
				Err:     err,
			})
			recordNudge(trigger, false)
			targetLog.WithError(err).Error("Failed to create nudge notification")
			continue
		}
		res.SentCount++
		recordNudge(trigger, true)
		targetLog.WithField("recipient_id", n.RecipientID).Debug("Nudge notification created")
	}

	logCtx.WithFields(logrus.Fields{
		"sent":   res.SentCount,
		"failed": len(res.Failures),
	}).Info("Nudge dispatch finished")
	return res
}

func (s *NudgeService) buildNotification(actor Actor, p *period.FiscalPeriod, t OrgStatus, message string) *notification.Notification {
	body := strings.TrimSpace(message)
	if body == "" {
		body = DefaultNudgeMessage(p.Code, t.OrgName)
	}
	orgID, periodID := t.OrgID, p.ID
	return &notification.Notification{
		ID:          uuid.New(),
		RecipientID: *t.HeadID,
		Type:        notification.TypeDraftReminder,
		Title:       nudgeTitle,
		Message:     body,
		Priority:    notification.PriorityHigh,
		ActionURL:   s.planningURL(p, t.OrgID),
		SenderID:    actor.senderID(),
		SenderName:  actor.Name,
		OrgID:       &orgID,
		PeriodID:    &periodID,
		CreatedAt:   s.now().UTC(),
	}
}

// DefaultNudgeMessage is the reminder text used when the caller supplies none.
func DefaultNudgeMessage(periodCode, orgName string) string {
	return fmt.Sprintf("The OKRs of %s for %s are not finished yet. Please complete and submit them before the planning deadline.",
		orgName, periodCode)
}

// planningURL points at the organization's planning entry point for the period.
func (s *NudgeService) planningURL(p *period.FiscalPeriod, orgID uuid.UUID) string {
	q := url.Values{}
	q.Set("period", p.Code)
	return fmt.Sprintf("%s/okr/planning/%s?%s", s.baseURL, orgID, q.Encode())
}
