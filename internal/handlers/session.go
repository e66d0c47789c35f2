package handlers

import (
	"context"
	"sync"
	"time"

	"walipheros/internal/ledger"
	"walipheros/internal/models"
	"walipheros/internal/scheduler"
	"walipheros/internal/state"
	"walipheros/internal/store"
	"walipheros/internal/websocket"

	"github.com/rs/zerolog"
)

// Session bundles the per-user state store, ledger engine, feed and
// scheduler. It lives for the remainder of the process once created.
type Session struct {
	Store     *state.Store
	Engine    *ledger.Engine
	Feed      *ledger.Feed
	Scheduler *scheduler.Scheduler

	todoIDs idSource
}

// idSource hands out millisecond ids that never repeat, even when two
// allocations land in the same millisecond.
type idSource struct {
	mu   sync.Mutex
	last int64
}

func (s *idSource) next(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := now.UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// SessionManager lazily builds one Session per authenticated user, loading
// the persisted document bag on first touch and starting the sweep loop.
type SessionManager struct {
	docs          *store.DocumentStore
	hub           *websocket.Hub
	sweepInterval time.Duration
	log           zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(docs *store.DocumentStore, hub *websocket.Hub, sweepInterval time.Duration, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		docs:          docs,
		hub:           hub,
		sweepInterval: sweepInterval,
		log:           log,
		sessions:      make(map[string]*Session),
	}
}

func (m *SessionManager) Get(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[userID]; ok {
		return session, nil
	}

	documents, err := m.docs.LoadAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	persister := state.NewDocumentPersister(m.docs, userID, m.log)
	st := state.NewStore(state.FromDocuments(documents), persister, m.log)
	st.Subscribe(func(snapshot models.State) {
		m.hub.BroadcastState(userID, snapshot)
	})

	surface := &hubSurface{hub: m.hub, userID: userID}
	feed := ledger.NewFeed(st, surface, nil)
	engine := ledger.NewEngine(st, surface, ledger.ContextInteractor{}, nil, m.log)
	sched := scheduler.New(st, feed, m.sweepInterval, nil, m.log)
	// The sweep outlives the originating request.
	sched.Start(context.Background())

	session := &Session{Store: st, Engine: engine, Feed: feed, Scheduler: sched}
	m.sessions[userID] = session
	m.log.Info().Str("user_id", userID).Msg("session initialized")
	return session, nil
}

// StopAll cancels every running scheduler. Called on shutdown.
func (m *SessionManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		session.Scheduler.Stop()
	}
}

// hubSurface adapts the websocket hub to the alert and toast collaborator
// interfaces the core consumes.
type hubSurface struct {
	hub    *websocket.Hub
	userID string
}

func (s *hubSurface) Alert(title, message string) {
	s.hub.BroadcastToast(s.userID, websocket.Toast{Title: title, Message: message, Category: models.CategorySystem})
}

func (s *hubSurface) Notify(title, message, category string) {
	s.hub.BroadcastToast(s.userID, websocket.Toast{Title: title, Message: message, Category: category})
}
