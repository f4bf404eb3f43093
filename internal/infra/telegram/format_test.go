package telegram

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"okr_planning_bot/internal/app"
	"okr_planning_bot/internal/domain/okrset"
	"okr_planning_bot/internal/domain/period"
	"okr_planning_bot/internal/domain/role"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetupArgs(t *testing.T) {
	t.Parallel()

	code, setup, err := parseSetupArgs([]string{"2025-Q1", "2025-01-06", "2025-01-20", "grace=2025-01-24", "remind=7,3,1", "Please", "submit", "early"})
	require.NoError(t, err)
	assert.Equal(t, "2025-Q1", code)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), setup.StartsAt)
	assert.Equal(t, time.Date(2025, 1, 20, 23, 59, 59, 0, time.UTC), setup.DeadlineAt)
	require.NotNil(t, setup.GraceDeadlineAt)
	assert.Equal(t, time.Date(2025, 1, 24, 23, 59, 59, 0, time.UTC), *setup.GraceDeadlineAt)
	assert.Equal(t, []int{7, 3, 1}, setup.AutoRemindDays)
	assert.Equal(t, "Please submit early", setup.Message)

	_, setup, err = parseSetupArgs([]string{"2025-Q1", "2025-01-06", "2025-01-20"})
	require.NoError(t, err)
	assert.Nil(t, setup.GraceDeadlineAt)
	assert.Empty(t, setup.Message)

	_, _, err = parseSetupArgs([]string{"2025-Q1", "2025-01-06"})
	assert.Error(t, err)
	_, _, err = parseSetupArgs([]string{"2025-Q1", "06.01.2025", "2025-01-20"})
	assert.Error(t, err)
	_, _, err = parseSetupArgs([]string{"2025-Q1", "2025-01-06", "2025-01-20", "remind=7,soon"})
	assert.Error(t, err)
}

func TestErrorReply(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Error: you are not allowed to do this.",
		errorReply(fmt.Errorf("%w: needs level 30", app.ErrNotAuthorized)))
	assert.Equal(t, "Error: invalid state transition: planning of 2025-Q1 is setup",
		errorReply(fmt.Errorf("%w: planning of 2025-Q1 is setup", app.ErrInvalidStateTransition)))
	assert.Equal(t, "Something went wrong, please try again later.",
		errorReply(errors.New("pq: connection refused")))
}

func TestFormatStatusReport(t *testing.T) {
	t.Parallel()

	head := uuid.New()
	reminded := time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	report := &app.OrgStatusReport{
		Period: &period.FiscalPeriod{Code: "2025-Q1", PlanningStatus: period.PlanningInProgress},
		Orgs: []app.OrgStatus{
			{OrgName: "R&D", Status: okrset.StatusDraft, HeadID: &head, HeadName: "Riley Chen", LastRemindedAt: &reminded},
			{OrgName: "People", Status: okrset.StatusNotStarted},
		},
	}
	report.Stats = app.ComputeStats(report.Orgs)

	out := formatStatusReport(report)
	assert.Contains(t, out, "2025-Q1 planning: in_progress, completion 0%")
	assert.Contains(t, out, "R&D: draft (Riley Chen), reminded 2025-01-10 09:30")
	assert.Contains(t, out, "People: not_started (no head)")
}

func TestFormatDispatch(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Reminders sent: 2.", formatDispatch(app.DispatchResult{SentCount: 2}))
	out := formatDispatch(app.DispatchResult{
		SentCount: 1,
		Failures:  []app.DispatchFailure{{OrgName: "People", Reason: "organization has no head to notify"}},
	})
	assert.Equal(t, "Reminders sent: 1. Failed: 1.\n- People: organization has no head to notify", out)
}

func TestHelpTextFollowsRole(t *testing.T) {
	t.Parallel()

	member := helpText([]role.Assignment{{Role: role.Member, Level: role.LevelMember}})
	assert.Contains(t, member, "/periods")
	assert.NotContains(t, member, "/nudge")
	assert.NotContains(t, member, "/create_year")

	orgID := uuid.New()
	head := helpText([]role.Assignment{{Role: role.OrgHead, Level: role.LevelOrgHead, OrgID: &orgID}})
	assert.Contains(t, head, "/status")
	assert.Contains(t, head, "/nudge")
	assert.NotContains(t, head, "/planning_start")

	admin := helpText([]role.Assignment{{Role: role.CompanyAdmin, Level: role.LevelCompanyAdmin}})
	assert.Contains(t, admin, "/closing_finalize")
	assert.Contains(t, admin, "/delete_period")
}

func TestParseCallbackPeriodID(t *testing.T) {
	t.Parallel()

	p := &period.FiscalPeriod{ID: uuid.New()}
	markup := remindIncompleteMarkup(p)
	require.Len(t, markup.InlineKeyboard, 1)

	id, err := parseCallbackPeriodID(markup.InlineKeyboard[0][0].Data)
	require.NoError(t, err)
	assert.Equal(t, p.ID, id)

	_, err = parseCallbackPeriodID("delete_all")
	assert.Error(t, err)
	_, err = parseCallbackPeriodID(remindIncompletePrefix + "not-a-uuid")
	assert.Error(t, err)
}
