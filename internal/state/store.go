// Package state owns the single mutable dashboard record. Every mutation goes
// through Store.Mutate: validate-then-apply under the lock, then write through
// to the persister and fan out a snapshot to subscribers. A failed save is
// logged and dropped; the in-memory state stays authoritative until the next
// successful write.
package state

import (
	"context"
	"sync"

	"walipheros/internal/metrics"
	"walipheros/internal/models"

	"github.com/rs/zerolog"
)

// Persister is the durability collaborator. Write-through, no transactionality
// across categories, no retry queue.
type Persister interface {
	Save(ctx context.Context, snapshot models.State) error
}

// Listener receives a state snapshot after each applied mutation or remote
// replacement. Snapshots are copies; listeners may keep them.
type Listener func(models.State)

type Store struct {
	mu        sync.Mutex
	state     models.State
	persist   Persister
	listeners []Listener
	log       zerolog.Logger
}

func NewStore(initial models.State, persist Persister, log zerolog.Logger) *Store {
	return &Store{
		state:   initial,
		persist: persist,
		log:     log.With().Str("component", "state").Logger(),
	}
}

// Subscribe registers a listener for applied mutations. Not safe to call
// concurrently with Mutate; wire subscribers during startup.
func (s *Store) Subscribe(listener Listener) {
	s.listeners = append(s.listeners, listener)
}

// View runs fn with read access to the state. fn must not retain the pointer.
func (s *Store) View(fn func(*models.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.state)
}

// Mutate applies fn to the state. If fn returns an error nothing is persisted
// and no listeners fire; the state is expected to be untouched (mutation funcs
// validate fully before writing anything). On success the snapshot is written
// through and broadcast.
func (s *Store) Mutate(ctx context.Context, fn func(*models.State) error) error {
	s.mu.Lock()
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := clone(s.state)
	s.mu.Unlock()

	if err := s.persist.Save(ctx, snapshot); err != nil {
		metrics.SaveFailures.Inc()
		s.log.Error().Err(err).Msg("save failed, keeping optimistic in-memory state")
	}
	for _, listener := range s.listeners {
		listener(snapshot)
	}
	return nil
}

// Replace swaps in a remotely loaded state, as when the backing documents
// changed outside this process. Listeners fire; nothing is persisted.
func (s *Store) Replace(next models.State) {
	s.mu.Lock()
	s.state = next
	snapshot := clone(s.state)
	s.mu.Unlock()
	for _, listener := range s.listeners {
		listener(snapshot)
	}
}

func clone(st models.State) models.State {
	out := st
	out.Todos = append([]models.Todo(nil), st.Todos...)
	out.Schedule = append([]models.Subject(nil), st.Schedule...)
	out.Notifications = append([]models.Notification(nil), st.Notifications...)
	out.Links = append([]models.Link(nil), st.Links...)
	out.Finance.History = append([]models.HistoryEntry(nil), st.Finance.History...)
	out.Finance.PendingExpenses = append([]models.PendingBill(nil), st.Finance.PendingExpenses...)
	return out
}
