package database

import (
	"context"
	"database/sql"

	"okr_planning_bot/internal/domain/org"
	"okr_planning_bot/internal/domain/role"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PostgresDirectoryRepository reads organizations, profiles and role assignments.
type PostgresDirectoryRepository struct {
	db *sql.DB
}

func NewPostgresDirectoryRepository(db *sql.DB) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{db: db}
}

func (r *PostgresDirectoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*org.Organization, error) {
	query := `SELECT id, company_id, name, level, parent_id, created_at FROM organizations WHERE id = $1`
	o := &org.Organization{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.CompanyID, &o.Name, &o.Level, &o.ParentID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, org.ErrNotFound
		}
		return nil, errors.Wrap(err, "error getting organization by ID")
	}
	return o, nil
}

func (r *PostgresDirectoryRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*org.Organization, error) {
	query := `SELECT id, company_id, name, level, parent_id, created_at
               FROM organizations WHERE company_id = $1 ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, errors.Wrap(err, "error listing organizations")
	}
	defer rows.Close()

	orgs := make([]*org.Organization, 0)
	for rows.Next() {
		o := &org.Organization{}
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.Name, &o.Level, &o.ParentID, &o.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "error scanning organization")
		}
		orgs = append(orgs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating organizations")
	}
	return orgs, nil
}

func (r *PostgresDirectoryRepository) getProfile(ctx context.Context, where string, arg any) (*role.Profile, error) {
	query := `SELECT id, company_id, full_name, telegram_id FROM profiles WHERE ` + where + ` = $1`
	p := &role.Profile{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.CompanyID, &p.FullName, &p.TelegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, role.ErrProfileNotFound
		}
		return nil, errors.Wrapf(err, "error getting profile by %s", where)
	}
	return p, nil
}

func (r *PostgresDirectoryRepository) GetProfile(ctx context.Context, id uuid.UUID) (*role.Profile, error) {
	return r.getProfile(ctx, "id", id)
}

func (r *PostgresDirectoryRepository) GetProfileByTelegramID(ctx context.Context, telegramID int64) (*role.Profile, error) {
	return r.getProfile(ctx, "telegram_id", telegramID)
}

func scanAssignments(rows *sql.Rows) ([]role.Assignment, error) {
	out := make([]role.Assignment, 0)
	for rows.Next() {
		var a role.Assignment
		if err := rows.Scan(&a.ProfileID, &a.Role, &a.Level, &a.OrgID); err != nil {
			return nil, errors.Wrap(err, "error scanning role assignment")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating role assignments")
	}
	return out, nil
}

func (r *PostgresDirectoryRepository) ListAssignments(ctx context.Context, profileID uuid.UUID) ([]role.Assignment, error) {
	query := `SELECT profile_id, role, role_level, org_id FROM role_assignments WHERE profile_id = $1`
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, errors.Wrap(err, "error listing role assignments")
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (r *PostgresDirectoryRepository) ListLeaders(ctx context.Context, companyID uuid.UUID) ([]role.Assignment, error) {
	query := `SELECT ra.profile_id, ra.role, ra.role_level, ra.org_id
               FROM role_assignments ra
               JOIN organizations o ON o.id = ra.org_id
               WHERE o.company_id = $1 AND ra.role IN ($2, $3)
               ORDER BY ra.org_id, ra.profile_id`
	rows, err := r.db.QueryContext(ctx, query, companyID, role.OrgHead, role.CompanyAdmin)
	if err != nil {
		return nil, errors.Wrap(err, "error listing organization leaders")
	}
	defer rows.Close()
	return scanAssignments(rows)
}
