package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"okr_planning_bot/internal/domain/notification"
	"okr_planning_bot/internal/domain/okrset"
	"okr_planning_bot/internal/domain/role"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	dup := &pq.Error{Code: "23505", Constraint: "fiscal_periods_company_code_key"}
	assert.True(t, isUniqueViolation(dup, "fiscal_periods_company_code_key"))
	assert.True(t, isUniqueViolation(dup, ""))
	assert.False(t, isUniqueViolation(dup, "profiles_telegram_id_key"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("boom"), ""))
}

func TestPostgresNotificationRepository(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresNotificationRepository(db)
	orgID, periodID := uuid.New(), uuid.New()

	mock.ExpectExec(`INSERT INTO notifications`).WillReturnResult(sqlmock.NewResult(0, 1))
	n := &notification.Notification{
		RecipientID: uuid.New(),
		Type:        notification.TypeDraftReminder,
		OrgID:       &orgID,
		PeriodID:    &periodID,
	}
	require.NoError(t, repo.Create(ctx, n))
	assert.NotEqual(t, uuid.Nil, n.ID, "an id is assigned on create")

	sent := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT MAX\(created_at\) FROM notifications WHERE org_id = \$1 AND period_id = \$2`).
		WithArgs(orgID, periodID, notification.TypeDraftReminder).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(sent))
	last, err := repo.LastSentAt(ctx, orgID, periodID, notification.TypeDraftReminder)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, sent, *last)

	mock.ExpectQuery(`SELECT MAX\(created_at\) FROM notifications`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	last, err = repo.LastSentAt(ctx, orgID, uuid.New(), notification.TypeDraftReminder)
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOkrSetRepositoryLatestForOrg(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresOkrSetRepository(db)
	orgID, periodID := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM okr_sets WHERE org_id = \$1 AND period_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "period_id", "version", "status", "updated_at"}).
			AddRow(uuid.NewString(), orgID.String(), periodID.String(), 3, "under_review", time.Now()))
	set, err := repo.LatestForOrg(ctx, orgID, periodID)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Version)
	assert.Equal(t, okrset.RawUnderReview, set.Status)

	mock.ExpectQuery(`FROM okr_sets`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "period_id", "version", "status", "updated_at"}))
	_, err = repo.LatestForOrg(ctx, orgID, periodID)
	assert.ErrorIs(t, err, okrset.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectoryRepository(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresDirectoryRepository(db)
	companyID, profileID, orgID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM profiles WHERE telegram_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "full_name", "telegram_id"}).
			AddRow(profileID.String(), companyID.String(), "Dana Park", int64(42)))
	p, err := repo.GetProfileByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, profileID, p.ID)
	assert.True(t, p.TelegramID.Valid)

	mock.ExpectQuery(`FROM profiles WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "full_name", "telegram_id"}))
	_, err = repo.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, role.ErrProfileNotFound)

	mock.ExpectQuery(`FROM role_assignments ra\s+JOIN organizations o`).
		WithArgs(companyID, role.OrgHead, role.CompanyAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"profile_id", "role", "role_level", "org_id"}).
			AddRow(profileID.String(), "org_head", 20, orgID.String()))
	leaders, err := repo.ListLeaders(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, leaders, 1)
	assert.True(t, leaders[0].Leads())
	assert.Equal(t, orgID, *leaders[0].OrgID)

	require.NoError(t, mock.ExpectationsWereMet())
}
