// internal/infra/database/postgres_period_repository.go
package database

import (
	"context"
	"database/sql"

	"okr_planning_bot/internal/domain/period"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const periodColumns = `id, company_id, period_code, period_name, period_type, starts_at, ends_at,
       parent_period_id, status, planning_status, planning_starts_at, planning_deadline_at,
       planning_grace_deadline_at, planning_message, planning_auto_remind_days,
       planning_started_at, planning_closed_at, planning_completed_at,
       closing_started_at, closing_started_by, closed_at, closed_by,
       company_okr_finalized, revision, created_at, updated_at`

type PostgresPeriodRepository struct {
	db *sql.DB
}

func NewPostgresPeriodRepository(db *sql.DB) *PostgresPeriodRepository {
	return &PostgresPeriodRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (*period.FiscalPeriod, error) {
	p := &period.FiscalPeriod{}
	var remindDays pq.Int64Array
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Type, &p.StartsAt, &p.EndsAt,
		&p.ParentID, &p.Status, &p.PlanningStatus, &p.PlanningStartsAt, &p.PlanningDeadlineAt,
		&p.PlanningGraceDeadlineAt, &p.PlanningMessage, &remindDays,
		&p.PlanningStartedAt, &p.PlanningClosedAt, &p.PlanningCompletedAt,
		&p.ClosingStartedAt, &p.ClosingStartedBy, &p.ClosedAt, &p.ClosedBy,
		&p.CompanyOKRFinalized, &p.Revision, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PlanningAutoRemindDays = make([]int, len(remindDays))
	for i, d := range remindDays {
		p.PlanningAutoRemindDays[i] = int(d)
	}
	return p, nil
}

func scanPeriods(rows *sql.Rows) ([]*period.FiscalPeriod, error) {
	periods := make([]*period.FiscalPeriod, 0)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, errors.Wrap(err, "error scanning fiscal period row")
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating fiscal period rows")
	}
	return periods, nil
}

func remindDaysArray(days []int) pq.Int64Array {
	out := make(pq.Int64Array, len(days))
	for i, d := range days {
		out[i] = int64(d)
	}
	return out
}

func (r *PostgresPeriodRepository) CreateHierarchy(ctx context.Context, periods []*period.FiscalPeriod) error {
	if len(periods) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction for period hierarchy")
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO fiscal_periods (`+periodColumns+`)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
                       $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare period insert")
	}
	defer stmt.Close()

	// Parents come before children in the slice, so the self reference is always satisfied.
	for _, p := range periods {
		_, err := stmt.ExecContext(ctx,
			p.ID, p.CompanyID, p.Code, p.Name, p.Type, p.StartsAt, p.EndsAt,
			p.ParentID, p.Status, p.PlanningStatus, p.PlanningStartsAt, p.PlanningDeadlineAt,
			p.PlanningGraceDeadlineAt, p.PlanningMessage, remindDaysArray(p.PlanningAutoRemindDays),
			p.PlanningStartedAt, p.PlanningClosedAt, p.PlanningCompletedAt,
			p.ClosingStartedAt, p.ClosingStartedBy, p.ClosedAt, p.ClosedBy,
			p.CompanyOKRFinalized, p.Revision, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "fiscal_periods_company_code_key") {
				return period.ErrDuplicateCode
			}
			return errors.Wrapf(err, "error inserting period %s", p.Code)
		}
	}

	return errors.Wrap(txn.Commit(), "failed to commit period hierarchy")
}

func (r *PostgresPeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*period.FiscalPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods WHERE id = $1`
	p, err := scanPeriod(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, period.ErrNotFound
		}
		return nil, errors.Wrap(err, "error getting period by ID")
	}
	return p, nil
}

func (r *PostgresPeriodRepository) GetByCode(ctx context.Context, companyID uuid.UUID, code string) (*period.FiscalPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods WHERE company_id = $1 AND period_code = $2`
	p, err := scanPeriod(r.db.QueryRowContext(ctx, query, companyID, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, period.ErrNotFound
		}
		return nil, errors.Wrap(err, "error getting period by code")
	}
	return p, nil
}

func (r *PostgresPeriodRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*period.FiscalPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods WHERE company_id = $1 ORDER BY starts_at, ends_at DESC`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, errors.Wrap(err, "error listing periods")
	}
	defer rows.Close()
	return scanPeriods(rows)
}

func (r *PostgresPeriodRepository) ListPlanningInProgress(ctx context.Context) ([]*period.FiscalPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods
               WHERE planning_status = $1 AND status IN ($2, $3, $4)
               ORDER BY planning_deadline_at NULLS LAST`
	rows, err := r.db.QueryContext(ctx, query, period.PlanningInProgress,
		period.StatusUpcoming, period.StatusPlanning, period.StatusActive)
	if err != nil {
		return nil, errors.Wrap(err, "error listing periods with running planning")
	}
	defer rows.Close()
	return scanPeriods(rows)
}

// UpdateIfRevision writes every mutable column, guarded by the revision the caller read.
func (r *PostgresPeriodRepository) UpdateIfRevision(ctx context.Context, next *period.FiscalPeriod, expectedRevision int64) error {
	query := `UPDATE fiscal_periods
               SET status = $1, planning_status = $2, planning_starts_at = $3, planning_deadline_at = $4,
                   planning_grace_deadline_at = $5, planning_message = $6, planning_auto_remind_days = $7,
                   planning_started_at = $8, planning_closed_at = $9, planning_completed_at = $10,
                   closing_started_at = $11, closing_started_by = $12, closed_at = $13, closed_by = $14,
                   company_okr_finalized = $15, updated_at = $16, revision = revision + 1
               WHERE id = $17 AND revision = $18
               RETURNING revision`
	var revision int64
	err := r.db.QueryRowContext(ctx, query,
		next.Status, next.PlanningStatus, next.PlanningStartsAt, next.PlanningDeadlineAt,
		next.PlanningGraceDeadlineAt, next.PlanningMessage, remindDaysArray(next.PlanningAutoRemindDays),
		next.PlanningStartedAt, next.PlanningClosedAt, next.PlanningCompletedAt,
		next.ClosingStartedAt, next.ClosingStartedBy, next.ClosedAt, next.ClosedBy,
		next.CompanyOKRFinalized, next.UpdatedAt,
		next.ID, expectedRevision,
	).Scan(&revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.missOrConflict(ctx, r.db, next.ID)
		}
		return errors.Wrap(err, "error updating period")
	}
	next.Revision = revision
	return nil
}

// DeleteIfRevision deletes descendants deepest first and the root last, so the
// parent_period_id cascade never removes a row before its own revision is checked.
func (r *PostgresPeriodRepository) DeleteIfRevision(ctx context.Context, root period.RevisionRef, descendants []period.RevisionRef) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction for period delete")
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, `DELETE FROM fiscal_periods WHERE id = $1 AND revision = $2`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare period delete")
	}
	defer stmt.Close()

	refs := make([]period.RevisionRef, 0, len(descendants)+1)
	for i := len(descendants) - 1; i >= 0; i-- {
		refs = append(refs, descendants[i])
	}
	refs = append(refs, root)

	for _, ref := range refs {
		res, err := stmt.ExecContext(ctx, ref.ID, ref.Revision)
		if err != nil {
			return errors.Wrapf(err, "error deleting period %s", ref.ID)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "error reading deleted period count")
		}
		if affected == 0 {
			return r.missOrConflict(ctx, txn, ref.ID)
		}
	}

	return errors.Wrap(txn.Commit(), "failed to commit period delete")
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// missOrConflict tells a missing row apart from a stale revision after a guarded write hit nothing.
func (r *PostgresPeriodRepository) missOrConflict(ctx context.Context, q queryRower, id uuid.UUID) error {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM fiscal_periods WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "error checking period existence")
	}
	if !exists {
		return period.ErrNotFound
	}
	return period.ErrRevisionConflict
}
