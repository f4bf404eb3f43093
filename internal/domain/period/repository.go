// internal/domain/period/repository.go
package period

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("fiscal period not found")
	ErrDuplicateCode    = errors.New("fiscal period code already exists for company")
	ErrRevisionConflict = errors.New("fiscal period was modified concurrently")
)

// RevisionRef pins a period to the revision its caller read.
type RevisionRef struct {
	ID       uuid.UUID
	Revision int64
}

// Ref returns the period's id together with its current revision.
func (p *FiscalPeriod) Ref() RevisionRef {
	return RevisionRef{ID: p.ID, Revision: p.Revision}
}

// Repository persists fiscal periods. Every write is conditional on the revision the caller read.
type Repository interface {
	// CreateHierarchy inserts all periods in one transaction or none of them.
	CreateHierarchy(ctx context.Context, periods []*FiscalPeriod) error
	GetByID(ctx context.Context, id uuid.UUID) (*FiscalPeriod, error)
	GetByCode(ctx context.Context, companyID uuid.UUID, code string) (*FiscalPeriod, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*FiscalPeriod, error)
	// ListPlanningInProgress returns periods of every company whose planning is running.
	ListPlanningInProgress(ctx context.Context) ([]*FiscalPeriod, error)
	// UpdateIfRevision stores next when the stored revision still equals expectedRevision.
	// On success next.Revision is bumped. A mismatch yields ErrRevisionConflict.
	UpdateIfRevision(ctx context.Context, next *FiscalPeriod, expectedRevision int64) error
	// DeleteIfRevision removes root and the listed descendants in one transaction. Every
	// listed period must still be at its revision, otherwise nothing is deleted.
	DeleteIfRevision(ctx context.Context, root RevisionRef, descendants []RevisionRef) error
}
