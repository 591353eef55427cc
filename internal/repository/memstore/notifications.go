package memstore

import (
	"context"
	"sort"

	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/repository"
)

func (m *Store) CreateNotification(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.id()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *Store) ListNotifications(_ context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Store) CountUnread(_ context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *Store) MarkRead(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

// Enqueue records n in Queued instead of handing it to a dispatcher.
func (m *Store) Enqueue(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queued = append(m.Queued, n)
	return nil
}

// Publish records ev in Published.
func (m *Store) Publish(_ context.Context, ev model.MonitorEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, ev)
	return nil
}

// QueuedOfType returns the queued notifications of type t.
func (m *Store) QueuedOfType(t model.NotificationType) []model.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Notification
	for _, n := range m.Queued {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
