package role

import (
	"database/sql"

	"github.com/google/uuid"
)

// Profile is a user of a company as seen by the orchestrator.
type Profile struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	FullName   string
	TelegramID sql.NullInt64 // Only admins driving the bot need one
}
