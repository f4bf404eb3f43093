package okrset

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("okr set not found")

// Source is the read side of OKR sets owned by the goal authoring collaborator.
type Source interface {
	// LatestForOrg returns the highest version for (org, period) or ErrNotFound.
	LatestForOrg(ctx context.Context, orgID, periodID uuid.UUID) (*OkrSet, error)
}
