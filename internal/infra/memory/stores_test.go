package memory

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"okr_planning_bot/internal/domain/notification"
	"okr_planning_bot/internal/domain/okrset"
	"okr_planning_bot/internal/domain/org"
	"okr_planning_bot/internal/domain/role"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOkrSetStoreLatestForOrg(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewOkrSetStore()
	orgID, periodID := uuid.New(), uuid.New()

	_, err := s.LatestForOrg(ctx, orgID, periodID)
	assert.ErrorIs(t, err, okrset.ErrNotFound)

	s.Put(okrset.OkrSet{OrgID: orgID, PeriodID: periodID, Version: 2, Status: okrset.RawSubmitted})
	s.Put(okrset.OkrSet{OrgID: orgID, PeriodID: periodID, Version: 1, Status: okrset.RawApproved})

	latest, err := s.LatestForOrg(ctx, orgID, periodID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, okrset.RawSubmitted, latest.Status)
}

func TestNotificationStoreLastSentAt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewNotificationStore()
	orgID, q1, q2 := uuid.New(), uuid.New(), uuid.New()
	early := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)

	last, err := s.LastSentAt(ctx, orgID, q1, notification.TypeDraftReminder)
	require.NoError(t, err)
	assert.Nil(t, last)

	for _, ts := range []time.Time{late, early} {
		require.NoError(t, s.Create(ctx, &notification.Notification{
			Type: notification.TypeDraftReminder, OrgID: &orgID, PeriodID: &q1, CreatedAt: ts,
		}))
	}
	other := uuid.New()
	require.NoError(t, s.Create(ctx, &notification.Notification{
		Type: notification.TypeDraftReminder, OrgID: &other, PeriodID: &q1, CreatedAt: late.Add(time.Hour),
	}))
	require.NoError(t, s.Create(ctx, &notification.Notification{
		Type: notification.TypeDraftReminder, OrgID: &orgID, PeriodID: &q2, CreatedAt: late.Add(2 * time.Hour),
	}))

	last, err = s.LastSentAt(ctx, orgID, q1, notification.TypeDraftReminder)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, late, *last, "reminders for other orgs or periods do not count")
	assert.Len(t, s.All(), 4)
}

func TestDirectoryLeadersAndProfiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := NewDirectory()
	companyID := uuid.New()
	rootID, teamID := uuid.New(), uuid.New()
	d.AddOrganization(&org.Organization{ID: rootID, CompanyID: companyID, Name: "Acme", Level: org.LevelCompany})
	d.AddOrganization(&org.Organization{ID: teamID, CompanyID: companyID, Name: "R&D", Level: "division", ParentID: &rootID})

	head := &role.Profile{ID: uuid.New(), CompanyID: companyID, FullName: "Dana Park", TelegramID: sql.NullInt64{Int64: 42, Valid: true}}
	d.AddProfile(head)
	d.Assign(role.Assignment{ProfileID: head.ID, Role: role.OrgHead, OrgID: &teamID})
	d.Assign(role.Assignment{ProfileID: head.ID, Role: role.Member})

	got, err := d.GetProfileByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, head.ID, got.ID)
	_, err = d.GetProfileByTelegramID(ctx, 7)
	assert.ErrorIs(t, err, role.ErrProfileNotFound)

	assignments, err := d.ListAssignments(ctx, head.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, role.LevelOrgHead, assignments[0].Level)

	leaders, err := d.ListLeaders(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, leaders, 1)
	assert.Equal(t, teamID, *leaders[0].OrgID)

	leaders, err = d.ListLeaders(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, leaders)
}
