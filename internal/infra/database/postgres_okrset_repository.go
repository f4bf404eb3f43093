package database

import (
	"context"
	"database/sql"

	"okr_planning_bot/internal/domain/okrset"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type PostgresOkrSetRepository struct {
	db *sql.DB
}

func NewPostgresOkrSetRepository(db *sql.DB) *PostgresOkrSetRepository {
	return &PostgresOkrSetRepository{db: db}
}

func (r *PostgresOkrSetRepository) LatestForOrg(ctx context.Context, orgID, periodID uuid.UUID) (*okrset.OkrSet, error) {
	query := `SELECT id, org_id, period_id, version, status, updated_at
               FROM okr_sets WHERE org_id = $1 AND period_id = $2
               ORDER BY version DESC LIMIT 1`
	s := &okrset.OkrSet{}
	err := r.db.QueryRowContext(ctx, query, orgID, periodID).Scan(&s.ID, &s.OrgID, &s.PeriodID, &s.Version, &s.Status, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, okrset.ErrNotFound
		}
		return nil, errors.Wrap(err, "error getting latest OKR set")
	}
	return s, nil
}
