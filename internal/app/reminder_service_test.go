package app

import (
	"context"
	"testing"
	"time"

	"okr_planning_bot/internal/domain/okrset"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysUntil(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2025, 1, 20, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, 10, DaysUntil(time.Date(2025, 1, 10, 23, 0, 0, 0, time.UTC), deadline))
	assert.Equal(t, 0, DaysUntil(time.Date(2025, 1, 20, 8, 0, 0, 0, time.UTC), deadline))
	assert.Equal(t, -1, DaysUntil(time.Date(2025, 1, 21, 0, 0, 1, 0, time.UTC), deadline))

	// Local times count by their UTC date.
	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, 11, DaysUntil(time.Date(2025, 1, 10, 8, 0, 0, 0, tokyo), deadline))
}

func TestRunAutoReminders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	byCode := f.createYear(t)
	rnd, _ := f.addHead("R&D", "Riley Chen")
	sales, _ := f.addHead("Sales", "Sam Ortiz")
	f.addOrg("People")

	// Deadline 2025-01-20, the fixture clock starts 10 days before it.
	q1 := f.setup(t, byCode["2025-Q1"], 10, 3)
	f.setup(t, byCode["2025-Q2"], 5)
	_, err := f.service.StartPlanning(ctx, f.admin, q1.ID)
	require.NoError(t, err)
	kickoff := len(f.notifications.All())
	require.Equal(t, 2, kickoff)

	f.putOkrSet(sales, q1, 1, okrset.RawApproved)

	f.now = f.now.Add(2 * time.Hour)
	summary, err := f.reminders.RunAutoReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PeriodsChecked, "only running planning is checked")
	assert.Equal(t, 0, summary.Sent, "R&D was already reminded today at kickoff")
	assert.Equal(t, 1, summary.Skipped)

	f.now = time.Date(2025, 1, 17, 9, 0, 0, 0, time.UTC)
	summary, err = f.reminders.RunAutoReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReminderRunSummary{PeriodsChecked: 1, PeriodsReminded: 1, Sent: 1}, summary)

	rows := f.notifications.All()
	require.Len(t, rows, kickoff+1)
	last := rows[len(rows)-1]
	assert.Equal(t, rnd.ID, *last.OrgID)
	assert.Nil(t, last.SenderID)

	// A rerun on the same day adds nothing.
	summary, err = f.reminders.RunAutoReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent)
	assert.Len(t, f.notifications.All(), kickoff+1)

	// Not a configured offset.
	f.now = time.Date(2025, 1, 18, 9, 0, 0, 0, time.UTC)
	summary, err = f.reminders.RunAutoReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PeriodsReminded)

	// Closed planning is no longer reminded.
	_, err = f.service.ClosePlanning(ctx, f.admin, q1.ID)
	require.NoError(t, err)
	f.now = time.Date(2025, 1, 17, 10, 0, 0, 0, time.UTC)
	summary, err = f.reminders.RunAutoReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PeriodsChecked)
}

func TestRunAutoRemindersKeysSkipsByPeriod(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	byCode := f.createYear(t)
	rnd, _ := f.addHead("R&D", "Riley Chen")

	q1 := f.setup(t, byCode["2025-Q1"], 3)
	q2 := f.setup(t, byCode["2025-Q2"], 3)
	for _, p := range []uuid.UUID{q1.ID, q2.ID} {
		_, err := f.service.StartPlanning(ctx, f.admin, p)
		require.NoError(t, err)
	}
	kickoff := len(f.notifications.All())
	require.Equal(t, 2, kickoff)

	// A manual nudge about the year earlier that day does not count as a quarter reminder.
	f.now = time.Date(2025, 1, 17, 8, 0, 0, 0, time.UTC)
	_, err := f.nudges.SendNudge(ctx, f.admin, byCode["2025-Y"], []OrgStatus{{OrgID: rnd.ID, OrgName: "R&D"}}, "")
	require.NoError(t, err)

	f.now = time.Date(2025, 1, 17, 9, 0, 0, 0, time.UTC)
	summary, err := f.reminders.RunAutoReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReminderRunSummary{PeriodsChecked: 2, PeriodsReminded: 2, Sent: 2}, summary)

	reminded := make(map[uuid.UUID]int)
	for _, n := range f.notifications.All()[kickoff+1:] {
		require.NotNil(t, n.PeriodID)
		assert.Equal(t, rnd.ID, *n.OrgID)
		reminded[*n.PeriodID]++
	}
	assert.Equal(t, map[uuid.UUID]int{q1.ID: 1, q2.ID: 1}, reminded)

	// Each quarter now counts as reminded today.
	summary, err = f.reminders.RunAutoReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 2, summary.Skipped)
}
