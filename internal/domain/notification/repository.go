// internal/domain/notification/repository.go
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the notification sink plus the one read the status view needs.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// LastSentAt returns when a notification of type t was last created for org about
	// the given period, or nil when none exists.
	LastSentAt(ctx context.Context, orgID, periodID uuid.UUID, t Type) (*time.Time, error)
}
