package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"okr_planning_bot/internal/domain/okrset"
	"okr_planning_bot/internal/domain/org"
	"okr_planning_bot/internal/domain/period"
	"okr_planning_bot/internal/domain/role"
	"okr_planning_bot/internal/infra/memory"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var fixtureNow = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

// fixture wires the services over the in-memory stores for one company.
type fixture struct {
	companyID     uuid.UUID
	root          *org.Organization
	dir           *memory.Directory
	periods       *memory.PeriodStore
	okrSets       *memory.OkrSetStore
	notifications *memory.NotificationStore

	authority *RoleAuthority
	statuses  *StatusService
	nudges    *NudgeService
	service   *PeriodService
	reminders *ReminderService

	now    time.Time
	admin  Actor
	member Actor
	hook   *logrustest.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	log := logrus.NewEntry(logger)

	f := &fixture{
		companyID:     uuid.New(),
		dir:           memory.NewDirectory(),
		periods:       memory.NewPeriodStore(),
		okrSets:       memory.NewOkrSetStore(),
		notifications: memory.NewNotificationStore(),
		now:           fixtureNow,
		hook:          hook,
	}
	clock := func() time.Time { return f.now }

	f.root = &org.Organization{ID: uuid.New(), CompanyID: f.companyID, Name: "Acme", Level: org.LevelCompany}
	f.dir.AddOrganization(f.root)

	f.authority = NewRoleAuthority(f.dir)
	f.statuses = NewStatusService(f.periods, f.dir, f.dir, f.okrSets, f.notifications, f.authority, log).WithConcurrency(2)
	f.nudges = NewNudgeService(f.notifications, f.dir, f.dir, f.authority, "https://okr.example.com/", log).WithClock(clock)
	f.service = NewPeriodService(f.periods, f.authority, f.statuses, f.nudges, log).WithClock(clock)
	f.reminders = NewReminderService(f.periods, f.statuses, f.nudges, log).WithClock(clock)

	f.admin = f.addProfile("Alex Admin", role.CompanyAdmin, nil)
	f.member = f.addProfile("Morgan Member", role.Member, nil)
	return f
}

func (f *fixture) addOrg(name string) *org.Organization {
	o := &org.Organization{ID: uuid.New(), CompanyID: f.companyID, Name: name, Level: "division", ParentID: &f.root.ID}
	f.dir.AddOrganization(o)
	return o
}

// addProfile creates a profile holding r, scoped to orgID when it is not nil.
func (f *fixture) addProfile(name string, r role.Name, orgID *uuid.UUID) Actor {
	p := &role.Profile{ID: uuid.New(), CompanyID: f.companyID, FullName: name, TelegramID: sql.NullInt64{}}
	f.dir.AddProfile(p)
	f.dir.Assign(role.Assignment{ProfileID: p.ID, Role: r, OrgID: orgID})
	return Actor{ProfileID: p.ID, CompanyID: f.companyID, Name: name}
}

// addHead adds an org with an org_head and returns both.
func (f *fixture) addHead(orgName, headName string) (*org.Organization, Actor) {
	o := f.addOrg(orgName)
	return o, f.addProfile(headName, role.OrgHead, &o.ID)
}

func (f *fixture) putOkrSet(o *org.Organization, p *period.FiscalPeriod, version int, status okrset.RawStatus) {
	f.okrSets.Put(okrset.OkrSet{OrgID: o.ID, PeriodID: p.ID, Version: version, Status: status, UpdatedAt: f.now})
}

// createYear creates the 2025 hierarchy and returns the periods keyed by code.
func (f *fixture) createYear(t *testing.T) map[string]*period.FiscalPeriod {
	t.Helper()
	periods, err := f.service.CreateYearHierarchy(context.Background(), f.admin, 2025)
	require.NoError(t, err)
	byCode := make(map[string]*period.FiscalPeriod, len(periods))
	for _, p := range periods {
		byCode[p.Code] = p
	}
	return byCode
}

func (f *fixture) setup(t *testing.T, p *period.FiscalPeriod, remindDays ...int) *period.FiscalPeriod {
	t.Helper()
	saved, err := f.service.SavePlanningSetup(context.Background(), f.admin, p.ID, PlanningSetup{
		StartsAt:       time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		DeadlineAt:     time.Date(2025, 1, 20, 23, 59, 59, 0, time.UTC),
		AutoRemindDays: remindDays,
	})
	require.NoError(t, err)
	return saved
}

func (f *fixture) stored(t *testing.T, id uuid.UUID) *period.FiscalPeriod {
	t.Helper()
	p, err := f.periods.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}
