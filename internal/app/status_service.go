package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"okr_planning_bot/internal/domain/notification"
	"okr_planning_bot/internal/domain/okrset"
	"okr_planning_bot/internal/domain/org"
	"okr_planning_bot/internal/domain/period"
	"okr_planning_bot/internal/domain/role"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultStatusFetchConcurrency = 8

// OrgStatus is the planning state of one sub-organization for a period.
type OrgStatus struct {
	OrgID          uuid.UUID
	OrgName        string
	OrgLevel       string
	Status         okrset.Status
	OkrSetVersion  int // 0 when no OKR set exists
	HeadID         *uuid.UUID
	HeadName       string
	LastRemindedAt *time.Time
}

// HasHead reports whether a reminder can be addressed to the organization.
func (s OrgStatus) HasHead() bool { return s.HeadID != nil }

// StatusStats counts organizations per collapsed status.
type StatusStats struct {
	Total          int
	NotStarted     int
	Draft          int
	Submitted      int
	Approved       int
	Finalized      int
	CompletionRate int // percent, rounded
}

// OrgStatusReport is an advisory snapshot; it may be stale as soon as it is returned.
type OrgStatusReport struct {
	Period *period.FiscalPeriod
	Orgs   []OrgStatus
	Stats  StatusStats
}

// ComputeStats aggregates per-status counts and the completion rate over orgs.
func ComputeStats(orgs []OrgStatus) StatusStats {
	st := StatusStats{Total: len(orgs)}
	for _, o := range orgs {
		switch o.Status {
		case okrset.StatusNotStarted:
			st.NotStarted++
		case okrset.StatusDraft:
			st.Draft++
		case okrset.StatusSubmitted:
			st.Submitted++
		case okrset.StatusApproved:
			st.Approved++
		case okrset.StatusFinalized:
			st.Finalized++
		}
	}
	st.CompletionRate = CompletionRate(st.Approved+st.Finalized, st.Total)
	return st
}

// CompletionRate is round(100*complete/total), and 0 when there is nothing to complete.
func CompletionRate(complete, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(complete) / float64(total)))
}

// TargetFilter selects which organizations a reminder goes to.
type TargetFilter string

const (
	TargetAll        TargetFilter = "all"
	TargetIncomplete TargetFilter = "incomplete"
	TargetNotStarted TargetFilter = "not_started"
	TargetDraft      TargetFilter = "draft"
)

// ParseTargetFilter accepts the filter names above; empty means incomplete.
func ParseTargetFilter(s string) (TargetFilter, error) {
	switch f := TargetFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return TargetIncomplete, nil
	case TargetAll, TargetIncomplete, TargetNotStarted, TargetDraft:
		return f, nil
	default:
		return "", validationError("unknown target filter %q", s)
	}
}

// SelectTargets keeps orgs matching filter that have a head to address.
func SelectTargets(orgs []OrgStatus, filter TargetFilter) []OrgStatus {
	out := make([]OrgStatus, 0, len(orgs))
	for _, o := range orgs {
		if !o.HasHead() {
			continue
		}
		switch filter {
		case TargetAll:
		case TargetNotStarted:
			if o.Status != okrset.StatusNotStarted {
				continue
			}
		case TargetDraft:
			if o.Status != okrset.StatusDraft {
				continue
			}
		default:
			if o.Status.Complete() {
				continue
			}
		}
		out = append(out, o)
	}
	return out
}

// StatusService derives per-organization OKR submission status for a period.
type StatusService struct {
	periods       period.Repository
	orgs          org.Directory
	roles         role.Directory
	okrSets       okrset.Source
	notifications notification.Repository
	authority     *RoleAuthority
	concurrency   int
	log           *logrus.Entry
}

func NewStatusService(
	pr period.Repository,
	od org.Directory,
	rd role.Directory,
	src okrset.Source,
	nr notification.Repository,
	authority *RoleAuthority,
	log *logrus.Entry,
) *StatusService {
	return &StatusService{
		periods:       pr,
		orgs:          od,
		roles:         rd,
		okrSets:       src,
		notifications: nr,
		authority:     authority,
		concurrency:   defaultStatusFetchConcurrency,
		log:           log.WithField("service", "status"),
	}
}

// WithConcurrency bounds how many organizations are read in parallel.
func (s *StatusService) WithConcurrency(n int) *StatusService {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// ComputeOrgStatuses reports every sub-organization of the caller's company for the period.
// Callers without company-wide scope only see the organizations they are assigned to.
func (s *StatusService) ComputeOrgStatuses(ctx context.Context, actor Actor, periodID uuid.UUID) (*OrgStatusReport, error) {
	assignments, err := s.authority.Authorize(ctx, actor, OpComputeOrgStatuses)
	if err != nil {
		return nil, err
	}
	p, err := loadCompanyPeriod(ctx, s.periods, actor, periodID)
	if err != nil {
		return nil, err
	}
	report, err := s.compute(ctx, p)
	if err != nil {
		return nil, err
	}
	scope := AuthorizedOrgIDs(assignments)
	if !scope.CompanyWide {
		visible := report.Orgs[:0:0]
		for _, o := range report.Orgs {
			if scope.Includes(o.OrgID) {
				visible = append(visible, o)
			}
		}
		report.Orgs = visible
		report.Stats = ComputeStats(visible)
	}
	return report, nil
}

// compute builds the report without authorization; callers have already been authorized.
func (s *StatusService) compute(ctx context.Context, p *period.FiscalPeriod) (*OrgStatusReport, error) {
	all, err := s.orgs.ListByCompany(ctx, p.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	subOrgs := make([]*org.Organization, 0, len(all))
	for _, o := range all {
		if !o.IsCompanyRoot() {
			subOrgs = append(subOrgs, o)
		}
	}
	sort.Slice(subOrgs, func(i, j int) bool {
		if subOrgs[i].Name != subOrgs[j].Name {
			return subOrgs[i].Name < subOrgs[j].Name
		}
		return subOrgs[i].ID.String() < subOrgs[j].ID.String()
	})

	leaders, err := s.roles.ListLeaders(ctx, p.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization leaders: %w", err)
	}
	heads := pickHeads(leaders)

	statuses := make([]OrgStatus, len(subOrgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, o := range subOrgs {
		g.Go(func() error {
			st, err := s.orgStatus(gctx, p, o, heads[o.ID])
			if err != nil {
				return err
			}
			statuses[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"period_code": p.Code,
		"org_count":   len(statuses),
	}).Debug("Organization statuses computed")

	return &OrgStatusReport{Period: p, Orgs: statuses, Stats: ComputeStats(statuses)}, nil
}

func (s *StatusService) orgStatus(ctx context.Context, p *period.FiscalPeriod, o *org.Organization, headID *uuid.UUID) (OrgStatus, error) {
	st := OrgStatus{OrgID: o.ID, OrgName: o.Name, OrgLevel: o.Level, Status: okrset.StatusNotStarted}

	latest, err := s.okrSets.LatestForOrg(ctx, o.ID, p.ID)
	switch {
	case err == nil:
		st.Status = okrset.CollapseLatest(latest)
		st.OkrSetVersion = latest.Version
	case errors.Is(err, okrset.ErrNotFound):
	default:
		return st, fmt.Errorf("failed to load OKR set of %s: %w", o.Name, err)
	}

	if headID != nil {
		profile, err := s.roles.GetProfile(ctx, *headID)
		switch {
		case err == nil:
			id := profile.ID
			st.HeadID = &id
			st.HeadName = profile.FullName
		case errors.Is(err, role.ErrProfileNotFound):
			s.log.WithField("org_id", o.ID).Warn("Head profile of organization is missing")
		default:
			return st, fmt.Errorf("failed to load head of %s: %w", o.Name, err)
		}
	}

	last, err := s.notifications.LastSentAt(ctx, o.ID, p.ID, notification.TypeDraftReminder)
	if err != nil {
		return st, fmt.Errorf("failed to load last reminder of %s: %w", o.Name, err)
	}
	st.LastRemindedAt = last
	return st, nil
}

// pickHeads chooses one head per organization: org_head wins over company_admin, and
// ties go to the lowest profile id so repeated calls agree.
func pickHeads(leaders []role.Assignment) map[uuid.UUID]*uuid.UUID {
	best := make(map[uuid.UUID]role.Assignment)
	for _, a := range leaders {
		if !a.Leads() {
			continue
		}
		cur, ok := best[*a.OrgID]
		if !ok || headBefore(a, cur) {
			best[*a.OrgID] = a
		}
	}
	heads := make(map[uuid.UUID]*uuid.UUID, len(best))
	for orgID, a := range best {
		id := a.ProfileID
		heads[orgID] = &id
	}
	return heads
}

func headBefore(a, b role.Assignment) bool {
	if (a.Role == role.OrgHead) != (b.Role == role.OrgHead) {
		return a.Role == role.OrgHead
	}
	return a.ProfileID.String() < b.ProfileID.String()
}

// loadCompanyPeriod hides periods of other companies behind ErrNotFound.
func loadCompanyPeriod(ctx context.Context, repo period.Repository, actor Actor, id uuid.UUID) (*period.FiscalPeriod, error) {
	p, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, period.ErrNotFound) {
			return nil, fmt.Errorf("%w: period %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	if p.CompanyID != actor.CompanyID {
		return nil, fmt.Errorf("%w: period %s", ErrNotFound, id)
	}
	return p, nil
}
