package role

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrProfileNotFound = errors.New("profile not found")

// Directory exposes profiles and their role assignments.
type Directory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetProfileByTelegramID(ctx context.Context, telegramID int64) (*Profile, error)
	ListAssignments(ctx context.Context, profileID uuid.UUID) ([]Assignment, error)
	// ListLeaders returns org-scoped org_head and company_admin assignments of a company.
	ListLeaders(ctx context.Context, companyID uuid.UUID) ([]Assignment, error)
}
