package memory

import (
	"context"
	"sync"
	"time"

	"okr_planning_bot/internal/domain/notification"

	"github.com/google/uuid"
)

// NotificationStore is an append-only list of notifications.
type NotificationStore struct {
	mu   sync.RWMutex
	rows []notification.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) Create(ctx context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	s.rows = append(s.rows, *n)
	return nil
}

func (s *NotificationStore) LastSentAt(ctx context.Context, orgID, periodID uuid.UUID, t notification.Type) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last *time.Time
	for _, n := range s.rows {
		if n.Type != t || n.OrgID == nil || *n.OrgID != orgID {
			continue
		}
		if n.PeriodID == nil || *n.PeriodID != periodID {
			continue
		}
		if last == nil || n.CreatedAt.After(*last) {
			ts := n.CreatedAt
			last = &ts
		}
	}
	return last, nil
}

// All returns a copy of every stored notification in insertion order.
func (s *NotificationStore) All() []notification.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]notification.Notification(nil), s.rows...)
}
