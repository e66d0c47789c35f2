package scheduler

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"walipheros/internal/models"
	"walipheros/internal/state"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type recordedPush struct {
	Title     string
	Message   string
	Category  string
	DedupeKey string
}

type recordingFeed struct {
	pushes []recordedPush
	nextID int64
}

func (f *recordingFeed) Push(_ context.Context, title, message, category, target, dedupeKey string) (models.Notification, error) {
	f.pushes = append(f.pushes, recordedPush{Title: title, Message: message, Category: category, DedupeKey: dedupeKey})
	f.nextID++
	return models.Notification{ID: f.nextID, Title: title, DedupeKey: dedupeKey}, nil
}

type nopPersister struct{}

func (nopPersister) Save(context.Context, models.State) error { return nil }

func newTestScheduler(t *testing.T, initial models.State, now time.Time) (*Scheduler, *recordingFeed, *time.Time) {
	t.Helper()
	store := state.NewStore(initial, nopPersister{}, zerolog.Nop())
	feed := &recordingFeed{}
	clock := now
	s := New(store, feed, time.Minute, func() time.Time { return clock }, zerolog.Nop())
	return s, feed, &clock
}

func titles(feed *recordingFeed) []string {
	out := make([]string, 0, len(feed.pushes))
	for _, p := range feed.pushes {
		out = append(out, p.Title)
	}
	return out
}

func TestSweepBillDueToday(t *testing.T) {
	st := models.NewState()
	st.Finance.PendingExpenses = []models.PendingBill{
		{Description: "Internet", Amount: decimal.NewFromInt(300), DueDate: "2024-03-15"},
	}
	now := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	s, feed, _ := newTestScheduler(t, st, now)

	s.Sweep(context.Background())
	if len(feed.pushes) != 1 {
		t.Fatalf("expected 1 push, got %v", titles(feed))
	}
	p := feed.pushes[0]
	if p.Title != "Pago Pendiente" || p.DedupeKey != "fin-bill-Internet-15" {
		t.Fatalf("unexpected push: %#v", p)
	}

	// second sweep the same day stays silent
	s.Sweep(context.Background())
	if len(feed.pushes) != 1 {
		t.Fatalf("duplicate emission: %v", titles(feed))
	}
}

func TestSweepBillDueTomorrow(t *testing.T) {
	st := models.NewState()
	st.Finance.PendingExpenses = []models.PendingBill{
		{Description: "Renta", Amount: decimal.NewFromInt(400), DueDate: "2024-04-01"},
	}
	// month boundary: tomorrow is the 1st of the next month
	now := time.Date(2024, time.March, 31, 20, 0, 0, 0, time.UTC)
	s, feed, _ := newTestScheduler(t, st, now)

	s.Sweep(context.Background())
	if len(feed.pushes) != 1 {
		t.Fatalf("expected 1 push, got %v", titles(feed))
	}
	p := feed.pushes[0]
	if p.Title != "Aviso de Pago" || p.DedupeKey != "fin-warn-Renta-31" {
		t.Fatalf("unexpected push: %#v", p)
	}
}

func TestSweepSkipsMalformedBill(t *testing.T) {
	st := models.NewState()
	st.Finance.PendingExpenses = []models.PendingBill{
		{Description: "Rota", Amount: decimal.NewFromInt(10), DueDate: "next tuesday"},
		{Description: "Luz", Amount: decimal.NewFromInt(90), DueDate: "2024-03-15"},
	}
	now := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	s, feed, _ := newTestScheduler(t, st, now)

	s.Sweep(context.Background())
	if len(feed.pushes) != 1 || feed.pushes[0].DedupeKey != "fin-bill-Luz-15" {
		t.Fatalf("malformed bill must be skipped, got %#v", feed.pushes)
	}
}

func TestSweepClassWindows(t *testing.T) {
	st := models.NewState()
	st.Schedule = []models.Subject{
		{Name: "Cálculo", Code: "MAT201", Room: "B12", Weekday: 1, Start: "10:00", End: "11:30"},
	}
	// Monday 2024-03-11, 09:53 — seven minutes before class
	now := time.Date(2024, time.March, 11, 9, 53, 0, 0, time.UTC)
	s, feed, clock := newTestScheduler(t, st, now)
	ctx := context.Background()

	s.Sweep(ctx)
	if len(feed.pushes) != 1 || feed.pushes[0].Title != "Próxima Clase" {
		t.Fatalf("expected class reminder, got %v", titles(feed))
	}
	if feed.pushes[0].DedupeKey != "class-soon-MAT201-1" {
		t.Fatalf("unexpected key: %q", feed.pushes[0].DedupeKey)
	}
	if !strings.Contains(feed.pushes[0].Message, "Aula: B12") {
		t.Fatalf("reminder should mention the room: %q", feed.pushes[0].Message)
	}

	// sweep again inside the window: suppressed
	*clock = now.Add(2 * time.Minute)
	s.Sweep(ctx)
	if len(feed.pushes) != 1 {
		t.Fatalf("reminder re-fired: %v", titles(feed))
	}

	// class start
	*clock = time.Date(2024, time.March, 11, 10, 0, 30, 0, time.UTC)
	s.Sweep(ctx)
	if len(feed.pushes) != 2 || feed.pushes[1].Title != "Clase Iniciando" {
		t.Fatalf("expected start notice, got %v", titles(feed))
	}

	// class end, one minute past
	*clock = time.Date(2024, time.March, 11, 11, 31, 0, 0, time.UTC)
	s.Sweep(ctx)
	if len(feed.pushes) != 3 || feed.pushes[2].Title != "Clase Finalizada" {
		t.Fatalf("expected end notice, got %v", titles(feed))
	}
}

func TestSweepClassWrongDaySilent(t *testing.T) {
	st := models.NewState()
	st.Schedule = []models.Subject{
		{Name: "Física", Code: "FIS101", Weekday: 2, Start: "10:00", End: "11:00"},
	}
	// Monday, class is Tuesday
	now := time.Date(2024, time.March, 11, 9, 55, 0, 0, time.UTC)
	s, feed, _ := newTestScheduler(t, st, now)
	s.Sweep(context.Background())
	if len(feed.pushes) != 0 {
		t.Fatalf("unexpected pushes: %v", titles(feed))
	}
}

func TestSweepClassCustomReminder(t *testing.T) {
	st := models.NewState()
	st.Schedule = []models.Subject{
		{Name: "Química", Code: "QUI1", Weekday: 1, Start: "10:00", End: "11:00", NotifyBefore: 30},
	}
	now := time.Date(2024, time.March, 11, 9, 35, 0, 0, time.UTC)
	s, feed, _ := newTestScheduler(t, st, now)
	s.Sweep(context.Background())
	if len(feed.pushes) != 1 || feed.pushes[0].Title != "Próxima Clase" {
		t.Fatalf("expected reminder at 25 min with a 30 min lead, got %v", titles(feed))
	}
}

func TestSweepTaskDeadlineBuckets(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	st := models.NewState()
	st.Todos = []models.Todo{
		{ID: 1, Text: "ensayo", Deadline: now.Add(23*time.Hour + 30*time.Minute).UnixMilli()},
	}
	s, feed, clock := newTestScheduler(t, st, now)
	ctx := context.Background()

	s.Sweep(ctx)
	if len(feed.pushes) != 1 || feed.pushes[0].Title != "Aviso de Tarea" {
		t.Fatalf("expected 24h warning, got %v", titles(feed))
	}

	// every later sweep inside the bucket stays silent
	*clock = now.Add(10 * time.Minute)
	s.Sweep(ctx)
	if len(feed.pushes) != 1 {
		t.Fatalf("24h warning re-fired: %v", titles(feed))
	}

	// under one hour
	*clock = now.Add(23 * time.Hour)
	s.Sweep(ctx)
	if len(feed.pushes) != 2 || feed.pushes[1].Title != "Tarea Próxima" {
		t.Fatalf("expected 1h warning, got %v", titles(feed))
	}

	// overdue fires once
	*clock = now.Add(24 * time.Hour)
	s.Sweep(ctx)
	s.Sweep(ctx)
	if len(feed.pushes) != 3 || feed.pushes[2].Title != "Tarea Vencida" {
		t.Fatalf("expected one overdue notice, got %v", titles(feed))
	}
}

func TestSweepSkipsCompletedAndUndatedTasks(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	st := models.NewState()
	st.Todos = []models.Todo{
		{ID: 1, Text: "hecho", Completed: true, Deadline: now.Add(-time.Hour).UnixMilli()},
		{ID: 2, Text: "sin fecha"},
	}
	s, feed, _ := newTestScheduler(t, st, now)
	s.Sweep(context.Background())
	if len(feed.pushes) != 0 {
		t.Fatalf("unexpected pushes: %v", titles(feed))
	}
}

func TestSeedFromStoredNotifications(t *testing.T) {
	now := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	st := models.NewState()
	st.Finance.PendingExpenses = []models.PendingBill{
		{Description: "Internet", Amount: decimal.NewFromInt(300), DueDate: "2024-03-15"},
	}
	st.Notifications = []models.Notification{
		{ID: 10, Title: "Pago Pendiente", DedupeKey: "fin-bill-Internet-15"},
	}
	s, feed, _ := newTestScheduler(t, st, now)

	s.seedFromHistory()
	s.Sweep(context.Background())
	if len(feed.pushes) != 0 {
		t.Fatalf("seeded key must suppress re-emission, got %v", titles(feed))
	}
}

func TestStartTwiceCancelsPriorLoop(t *testing.T) {
	store := state.NewStore(models.NewState(), nopPersister{}, zerolog.Nop())
	feed := &recordingFeed{}
	var sweeps atomic.Int64
	clock := func() time.Time {
		// Sweep consults the clock exactly once per run.
		sweeps.Add(1)
		return time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	}
	s := New(store, feed, 5*time.Millisecond, clock, zerolog.Nop())

	// Restart replaces the loop; Stop cancels only the latest one, so if the
	// first loop survived the restart it would keep ticking past Stop.
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()

	time.Sleep(30 * time.Millisecond)
	before := sweeps.Load()
	time.Sleep(60 * time.Millisecond)
	if after := sweeps.Load(); after != before {
		t.Fatalf("sweep loop still ticking after Stop (%d -> %d)", before, after)
	}

	// Stop on a stopped scheduler is a no-op.
	s.Stop()
}

func TestNewDeadlineResetsSuppression(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(30 * time.Minute).UnixMilli()
	st := models.NewState()
	st.Todos = []models.Todo{{ID: 7, Text: "tarea", Deadline: deadline}}
	s, feed, _ := newTestScheduler(t, st, now)
	ctx := context.Background()

	s.Sweep(ctx)
	if len(feed.pushes) != 1 {
		t.Fatalf("expected 1h warning, got %v", titles(feed))
	}

	// moving the deadline creates a fresh instance key
	moved := now.Add(45 * time.Minute).UnixMilli()
	s.store.Mutate(ctx, func(st *models.State) error {
		st.Todos[0].Deadline = moved
		return nil
	})
	s.Sweep(ctx)
	if len(feed.pushes) != 2 {
		t.Fatalf("new deadline must re-arm the warning, got %v", titles(feed))
	}
}
