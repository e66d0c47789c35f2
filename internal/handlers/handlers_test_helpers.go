package handlers

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"walipheros/internal/auth"
	"walipheros/internal/config"
	"walipheros/internal/middleware"
	"walipheros/internal/store"
	"walipheros/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn func(ctx context.Context, email string) (map[string]any, error)
	getByIDFn    func(ctx context.Context, userID string) (map[string]any, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (map[string]any, error) {
	if s.getByEmailFn == nil {
		return nil, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (map[string]any, error) {
	if s.getByIDFn == nil {
		return nil, nil
	}
	return s.getByIDFn(ctx, userID)
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type upsertCall struct {
	userID   string
	category string
}

// fakeDocumentDB backs the document store in tests. Loads always return an
// empty document bag, so every session starts from the default state.
type fakeDocumentDB struct {
	mu      sync.Mutex
	upserts []upsertCall
	execErr error
}

func (f *fakeDocumentDB) ExecContext(_ context.Context, _ string, args ...any) (sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(args) >= 2 {
		f.upserts = append(f.upserts, upsertCall{
			userID:   valueToString(args[0]),
			category: valueToString(args[1]),
		})
	}
	return fakeResult{}, f.execErr
}

func (f *fakeDocumentDB) GetContext(context.Context, any, string, ...any) error {
	return sql.ErrNoRows
}

func (f *fakeDocumentDB) SelectContext(context.Context, any, string, ...any) error {
	return nil
}

const testSecret = "test-secret"

func newTestHandler(t *testing.T, users UserStore) (*Handler, *fakeDocumentDB) {
	t.Helper()
	return newTestHandlerWithTx(t, users, fakeTxRunner{})
}

func newTestHandlerWithTx(t *testing.T, users UserStore, txRunner fakeTxRunner) (*Handler, *fakeDocumentDB) {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      testSecret,
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		SweepInterval:  time.Hour,
	}
	docDB := &fakeDocumentDB{}
	docs := store.NewDocumentStore(docDB)
	hub := websocket.NewHub()
	sessions := NewSessionManager(docs, hub, cfg.SweepInterval, zerolog.Nop())
	t.Cleanup(sessions.StopAll)
	return New(cfg, txRunner, users, sessions, hub), docDB
}

func authedRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	token, err := auth.GenerateToken(testSecret, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serveAuthed(t *testing.T, handlerFn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	middleware.Auth(testSecret)(handlerFn).ServeHTTP(rr, req)
	return rr
}
