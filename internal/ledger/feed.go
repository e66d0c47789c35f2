package ledger

import (
	"context"
	"sync"
	"time"

	"walipheros/internal/format"
	"walipheros/internal/metrics"
	"walipheros/internal/models"
	"walipheros/internal/state"
)

// maxNotifications caps the feed; the oldest entry is dropped on overflow.
const maxNotifications = 50

// Toaster is the transient toast surface. Best effort, non-blocking.
type Toaster interface {
	Notify(title, message, category string)
}

// Feed manages the append-capped notification collection inside the shared
// state. IDs are monotonic and time-based so the client can keep sorting by
// id the way it always has.
type Feed struct {
	store *state.Store
	toast Toaster
	now   func() time.Time

	mu     sync.Mutex
	lastID int64
}

func NewFeed(store *state.Store, toast Toaster, now func() time.Time) *Feed {
	if now == nil {
		now = time.Now
	}
	return &Feed{store: store, toast: toast, now: now}
}

// Push prepends a notification, trims the feed to its cap, persists and
// forwards a toast. dedupeKey may be empty for one-off confirmations.
func (f *Feed) Push(ctx context.Context, title, message, category, target, dedupeKey string) (models.Notification, error) {
	now := f.now()
	notif := models.Notification{
		ID:        f.nextID(now),
		Title:     title,
		Message:   message,
		Category:  category,
		Target:    target,
		DedupeKey: dedupeKey,
		Timestamp: format.DisplayTime(now),
	}
	err := f.store.Mutate(ctx, func(st *models.State) error {
		st.Notifications = append([]models.Notification{notif}, st.Notifications...)
		if len(st.Notifications) > maxNotifications {
			st.Notifications = st.Notifications[:maxNotifications]
		}
		return nil
	})
	if err != nil {
		return models.Notification{}, err
	}
	metrics.NotificationsEmitted.WithLabelValues(category).Inc()
	f.toast.Notify(title, message, category)
	return notif, nil
}

// Acknowledge marks the notification read and removes it from the feed, the
// way clicking one does in the client. Unknown ids are a no-op.
func (f *Feed) Acknowledge(ctx context.Context, id int64) error {
	return f.store.Mutate(ctx, func(st *models.State) error {
		for i := range st.Notifications {
			if st.Notifications[i].ID == id {
				st.Notifications = append(st.Notifications[:i], st.Notifications[i+1:]...)
				break
			}
		}
		return nil
	})
}

// Clear empties the feed.
func (f *Feed) Clear(ctx context.Context) error {
	return f.store.Mutate(ctx, func(st *models.State) error {
		st.Notifications = []models.Notification{}
		return nil
	})
}

// Unread counts notifications not yet read.
func (f *Feed) Unread() int {
	count := 0
	f.store.View(func(st *models.State) {
		for _, n := range st.Notifications {
			if !n.Read {
				count++
			}
		}
	})
	return count
}

func (f *Feed) nextID(now time.Time) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := now.UnixMilli()
	if id <= f.lastID {
		id = f.lastID + 1
	}
	f.lastID = id
	return id
}
