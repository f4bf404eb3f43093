// internal/domain/notification/notification.go
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification for its consumers.
type Type string

const (
	TypeDraftReminder Type = "okr_draft_reminder"
)

// Priority is how prominently consumers should surface a notification.
type Priority string

const PriorityHigh Priority = "high"

// Notification is an in-app message row. Rows are append-only here; reading and
// deleting them belongs to the consumers.
type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Type        Type
	Title       string
	Message     string
	Priority    Priority
	ActionURL   string
	SenderID    *uuid.UUID
	SenderName  string
	OrgID       *uuid.UUID
	PeriodID    *uuid.UUID
	CreatedAt   time.Time
	IsRead      bool
}
