// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"time"

	"okr_planning_bot/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `INSERT INTO notifications (id, recipient_id, type, title, message, priority, action_url,
                                         sender_id, sender_name, org_id, period_id, created_at, is_read)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.RecipientID, n.Type, n.Title, n.Message, n.Priority, n.ActionURL,
		n.SenderID, n.SenderName, n.OrgID, n.PeriodID, n.CreatedAt, n.IsRead,
	)
	if err != nil {
		return errors.Wrapf(err, "error creating notification for recipient %s", n.RecipientID)
	}
	return nil
}

func (r *PostgresNotificationRepository) LastSentAt(ctx context.Context, orgID, periodID uuid.UUID, t notification.Type) (*time.Time, error) {
	query := `SELECT MAX(created_at) FROM notifications WHERE org_id = $1 AND period_id = $2 AND type = $3`
	var last sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, orgID, periodID, t).Scan(&last); err != nil {
		// MAX() always yields a row, so any error here is a real one.
		return nil, errors.Wrap(err, "error getting last notification time")
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}
