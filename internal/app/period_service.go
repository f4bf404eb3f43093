package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"okr_planning_bot/internal/domain/period"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PlanningSetup is the input of SavePlanningSetup.
type PlanningSetup struct {
	StartsAt        time.Time  `validate:"required"`
	DeadlineAt      time.Time  `validate:"required,gtfield=StartsAt"`
	GraceDeadlineAt *time.Time `validate:"omitempty"`
	Message         string     `validate:"max=2000"`
	AutoRemindDays  []int      `validate:"max=31,dive,gte=0,lte=366"`
}

// StartPlanningResult carries the updated period and the outcome of the kickoff reminders.
// The transition is committed even when DispatchErr is set.
type StartPlanningResult struct {
	Period      *period.FiscalPeriod
	Dispatch    DispatchResult
	DispatchErr error
}

// PeriodService owns fiscal periods and drives both the period lifecycle and the
// planning sub-lifecycle. Every operation is authorized before anything is read or written.
type PeriodService struct {
	periods   period.Repository
	authority *RoleAuthority
	statuses  *StatusService
	nudges    *NudgeService
	validate  *validator.Validate
	now       func() time.Time
	log       *logrus.Entry
}

func NewPeriodService(
	pr period.Repository,
	authority *RoleAuthority,
	statuses *StatusService,
	nudges *NudgeService,
	log *logrus.Entry,
) *PeriodService {
	return &PeriodService{
		periods:   pr,
		authority: authority,
		statuses:  statuses,
		nudges:    nudges,
		validate:  validator.New(),
		now:       time.Now,
		log:       log.WithField("service", "period"),
	}
}

// WithClock replaces the time source used for transition stamps.
func (s *PeriodService) WithClock(now func() time.Time) *PeriodService {
	s.now = now
	return s
}

// CreateYearHierarchy creates the year, its two halves and four quarters in one go.
func (s *PeriodService) CreateYearHierarchy(ctx context.Context, actor Actor, year int) (periods []*period.FiscalPeriod, err error) {
	defer func() { recordOperation(OpCreateYearHierarchy, err) }()

	if _, err := s.authority.Authorize(ctx, actor, OpCreateYearHierarchy); err != nil {
		return nil, err
	}
	if year < period.MinYear || year > period.MaxYear {
		return nil, validationError("year %d is outside %d..%d", year, period.MinYear, period.MaxYear)
	}

	code := period.YearCode(year)
	_, err = s.periods.GetByCode(ctx, actor.CompanyID, code)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: period %s already exists", ErrDuplicateResource, code)
	case !errors.Is(err, period.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing period %s: %w", code, err)
	}

	periods = period.BuildYearHierarchy(actor.CompanyID, year, s.now().UTC())
	if err := checkNesting(periods); err != nil {
		return nil, err
	}
	if err := s.periods.CreateHierarchy(ctx, periods); err != nil {
		if errors.Is(err, period.ErrDuplicateCode) {
			return nil, fmt.Errorf("%w: period %s already exists", ErrDuplicateResource, code)
		}
		return nil, fmt.Errorf("failed to create period hierarchy %s: %w", code, err)
	}

	s.log.WithFields(logrus.Fields{
		"company_id": actor.CompanyID,
		"year":       year,
		"created_by": actor.ProfileID,
	}).Info("Year period hierarchy created")
	return periods, nil
}

// checkNesting verifies each child's range lies within its parent's.
func checkNesting(periods []*period.FiscalPeriod) error {
	tree, err := period.BuildTree(periods)
	if err != nil {
		return validationError("%v", err)
	}
	for _, p := range periods {
		if p.ParentID == nil {
			continue
		}
		parent, ok := tree.Get(*p.ParentID)
		if !ok || !parent.Contains(p) {
			return validationError("period %s is not contained in its parent", p.Code)
		}
	}
	return nil
}

// ListPeriods returns the caller's company periods ordered by start, widest first.
func (s *PeriodService) ListPeriods(ctx context.Context, actor Actor) ([]*period.FiscalPeriod, error) {
	if _, err := s.authority.Authorize(ctx, actor, OpListPeriods); err != nil {
		return nil, err
	}
	periods, err := s.periods.ListByCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	period.SortPeriods(periods)
	return periods, nil
}

// GetPeriod returns one of the caller's company periods.
func (s *PeriodService) GetPeriod(ctx context.Context, actor Actor, id uuid.UUID) (*period.FiscalPeriod, error) {
	if _, err := s.authority.Authorize(ctx, actor, OpGetPeriod); err != nil {
		return nil, err
	}
	return loadCompanyPeriod(ctx, s.periods, actor, id)
}

// GetPeriodByCode resolves a period code such as 2025-Q1 within the caller's company.
func (s *PeriodService) GetPeriodByCode(ctx context.Context, actor Actor, code string) (*period.FiscalPeriod, error) {
	if _, err := s.authority.Authorize(ctx, actor, OpGetPeriod); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, _, err := period.ParseCode(code); err != nil {
		return nil, validationError("%v", err)
	}
	p, err := s.periods.GetByCode(ctx, actor.CompanyID, code)
	if err != nil {
		if errors.Is(err, period.ErrNotFound) {
			return nil, fmt.Errorf("%w: period %s", ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to load period %s: %w", code, err)
	}
	return p, nil
}

// SavePlanningSetup stores the planning window and moves planning to setup. Saving again
// while still in setup is allowed; once planning has started the setup is frozen.
func (s *PeriodService) SavePlanningSetup(ctx context.Context, actor Actor, periodID uuid.UUID, setup PlanningSetup) (*period.FiscalPeriod, error) {
	return s.transition(ctx, actor, OpSavePlanningSetup, periodID,
		func() error { return s.validateSetup(setup) },
		func(p *period.FiscalPeriod, _ time.Time) error {
			if !p.PlanningOpen() {
				return transitionError("period %s is %s, planning can no longer be set up", p.Code, p.Status)
			}
			if p.PlanningStatus != period.PlanningNotStarted && p.PlanningStatus != period.PlanningSetup {
				return transitionError("planning of %s is %s, setup can only be saved before it starts", p.Code, p.PlanningStatus)
			}
			starts, deadline := setup.StartsAt.UTC(), setup.DeadlineAt.UTC()
			p.PlanningStartsAt = &starts
			p.PlanningDeadlineAt = &deadline
			p.PlanningGraceDeadlineAt = nil
			if setup.GraceDeadlineAt != nil {
				grace := setup.GraceDeadlineAt.UTC()
				p.PlanningGraceDeadlineAt = &grace
			}
			p.PlanningMessage = strings.TrimSpace(setup.Message)
			p.PlanningAutoRemindDays = normalizeRemindDays(setup.AutoRemindDays)
			p.PlanningStatus = period.PlanningSetup
			return nil
		})
}

func (s *PeriodService) validateSetup(setup PlanningSetup) error {
	if err := s.validate.Struct(setup); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, describeFieldError(fe))
			}
			return validationError("%s", strings.Join(fields, "; "))
		}
		return validationError("%v", err)
	}
	if setup.GraceDeadlineAt != nil && setup.GraceDeadlineAt.Before(setup.DeadlineAt) {
		return validationError("grace deadline must not be before the planning deadline")
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// normalizeRemindDays dedupes day offsets and orders them from furthest to nearest.
func normalizeRemindDays(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// StartPlanning opens planning and reminds every organization head in the company.
func (s *PeriodService) StartPlanning(ctx context.Context, actor Actor, periodID uuid.UUID) (*StartPlanningResult, error) {
	p, err := s.transition(ctx, actor, OpStartPlanning, periodID, nil,
		func(p *period.FiscalPeriod, now time.Time) error {
			if !p.PlanningOpen() {
				return transitionError("period %s is %s, planning cannot start", p.Code, p.Status)
			}
			if p.PlanningStatus != period.PlanningSetup {
				return transitionError("planning of %s is %s, it must be set up before it starts", p.Code, p.PlanningStatus)
			}
			p.PlanningStatus = period.PlanningInProgress
			p.PlanningStartedAt = &now
			return nil
		})
	if err != nil {
		return nil, err
	}

	res := &StartPlanningResult{Period: p}
	report, err := s.statuses.compute(ctx, p)
	if err != nil {
		res.DispatchErr = fmt.Errorf("planning started but kickoff reminders were not sent: %w", err)
		s.log.WithError(err).WithField("period_code", p.Code).Error("Failed to compute statuses for kickoff reminders")
		return res, nil
	}
	res.Dispatch = s.nudges.dispatch(ctx, actor, p, SelectTargets(report.Orgs, TargetAll), p.PlanningMessage, triggerPlanning)
	return res, nil
}

// ClosePlanning stops planning. Submission collaborators must refuse new submissions from
// now on; see FiscalPeriod.AcceptsSubmissions.
func (s *PeriodService) ClosePlanning(ctx context.Context, actor Actor, periodID uuid.UUID) (*period.FiscalPeriod, error) {
	return s.transition(ctx, actor, OpClosePlanning, periodID, nil,
		func(p *period.FiscalPeriod, now time.Time) error {
			if p.PlanningStatus != period.PlanningInProgress {
				return transitionError("planning of %s is %s, only running planning can be closed", p.Code, p.PlanningStatus)
			}
			p.PlanningStatus = period.PlanningClosing
			p.PlanningClosedAt = &now
			return nil
		})
}

// FinalizePlanning completes planning and optionally marks the company OKRs as final.
func (s *PeriodService) FinalizePlanning(ctx context.Context, actor Actor, periodID uuid.UUID, finalizeCompanyOKR bool) (*period.FiscalPeriod, error) {
	return s.transition(ctx, actor, OpFinalizePlanning, periodID, nil,
		func(p *period.FiscalPeriod, now time.Time) error {
			if p.PlanningStatus != period.PlanningClosing {
				return transitionError("planning of %s is %s, it must be closed before it is finalized", p.Code, p.PlanningStatus)
			}
			p.PlanningStatus = period.PlanningCompleted
			p.PlanningCompletedAt = &now
			if finalizeCompanyOKR {
				p.CompanyOKRFinalized = true
			}
			return nil
		})
}

// StartClosing moves an active period into its closing phase.
func (s *PeriodService) StartClosing(ctx context.Context, actor Actor, periodID uuid.UUID) (*period.FiscalPeriod, error) {
	return s.transition(ctx, actor, OpStartClosing, periodID, nil,
		func(p *period.FiscalPeriod, now time.Time) error {
			if p.Status != period.StatusActive {
				return transitionError("period %s is %s, only active periods can start closing", p.Code, p.Status)
			}
			by := actor.ProfileID
			p.Status = period.StatusClosing
			p.ClosingStartedAt = &now
			p.ClosingStartedBy = &by
			return nil
		})
}

// FinalizeClosing closes a period for good.
func (s *PeriodService) FinalizeClosing(ctx context.Context, actor Actor, periodID uuid.UUID) (*period.FiscalPeriod, error) {
	return s.transition(ctx, actor, OpFinalizeClosing, periodID, nil,
		func(p *period.FiscalPeriod, now time.Time) error {
			if p.Status != period.StatusClosing {
				return transitionError("period %s is %s, only closing periods can be finalized", p.Code, p.Status)
			}
			by := actor.ProfileID
			p.Status = period.StatusClosed
			p.ClosedAt = &now
			p.ClosedBy = &by
			return nil
		})
}

// DeletePeriod removes an upcoming period together with all periods below it.
func (s *PeriodService) DeletePeriod(ctx context.Context, actor Actor, periodID uuid.UUID) (err error) {
	defer func() { recordOperation(OpDeletePeriod, err) }()

	if _, err := s.authority.Authorize(ctx, actor, OpDeletePeriod); err != nil {
		return err
	}
	p, err := loadCompanyPeriod(ctx, s.periods, actor, periodID)
	if err != nil {
		return err
	}
	if p.Status != period.StatusUpcoming {
		return transitionError("period %s is %s, only upcoming periods can be deleted", p.Code, p.Status)
	}

	all, err := s.periods.ListByCompany(ctx, actor.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to list periods: %w", err)
	}
	tree, err := period.BuildTree(all)
	if err != nil {
		return fmt.Errorf("failed to index periods: %w", err)
	}
	descendants := tree.Descendants(p.ID)
	refs := make([]period.RevisionRef, 0, len(descendants))
	for _, d := range descendants {
		if d.Status != period.StatusUpcoming {
			return transitionError("period %s is %s, %s cannot be deleted with it", d.Code, d.Status, p.Code)
		}
		refs = append(refs, d.Ref())
	}

	if err := s.periods.DeleteIfRevision(ctx, p.Ref(), refs); err != nil {
		return s.mapWriteError(p, err)
	}
	s.log.WithFields(logrus.Fields{
		"period_code": p.Code,
		"cascaded":    len(refs),
		"deleted_by":  actor.ProfileID,
	}).Info("Period deleted")
	return nil
}

// transition is the conditional update shared by every state change: authorize, validate
// input, read the period, check the precondition on a copy, then write it only if nobody
// else wrote in between.
func (s *PeriodService) transition(
	ctx context.Context,
	actor Actor,
	op Operation,
	periodID uuid.UUID,
	validateInput func() error,
	mutate func(p *period.FiscalPeriod, now time.Time) error,
) (next *period.FiscalPeriod, err error) {
	defer func() { recordOperation(op, err) }()

	if _, err := s.authority.Authorize(ctx, actor, op); err != nil {
		return nil, err
	}
	if validateInput != nil {
		if err := validateInput(); err != nil {
			return nil, err
		}
	}
	cur, err := loadCompanyPeriod(ctx, s.periods, actor, periodID)
	if err != nil {
		return nil, err
	}

	if cur.Status == period.StatusClosed || cur.Status == period.StatusArchived {
		return nil, transitionError("period %s is %s and can no longer change", cur.Code, cur.Status)
	}

	now := s.now().UTC()
	next = cur.Clone()
	if err := mutate(next, now); err != nil {
		return nil, err
	}
	next.UpdatedAt = now
	if err := s.periods.UpdateIfRevision(ctx, next, cur.Revision); err != nil {
		return nil, s.mapWriteError(cur, err)
	}

	s.log.WithFields(logrus.Fields{
		"operation":       op,
		"period_code":     next.Code,
		"status":          next.Status,
		"planning_status": next.PlanningStatus,
		"actor_id":        actor.ProfileID,
	}).Info("Period transition applied")
	return next, nil
}

func (s *PeriodService) mapWriteError(p *period.FiscalPeriod, err error) error {
	switch {
	case errors.Is(err, period.ErrRevisionConflict):
		return transitionError("period %s was changed by another request, reload and retry", p.Code)
	case errors.Is(err, period.ErrNotFound):
		return fmt.Errorf("%w: period %s", ErrNotFound, p.Code)
	default:
		return fmt.Errorf("failed to write period %s: %w", p.Code, err)
	}
}
