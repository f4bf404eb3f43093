package org

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("organization not found")

// Directory is the read side of the organization tree.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Organization, error)
}
