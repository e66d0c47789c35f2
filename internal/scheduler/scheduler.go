// Package scheduler runs the periodic notification sweep: bill due dates,
// class start/end windows and task deadlines. Each condition instance emits
// at most once, keyed by a composite de-duplication id that also rides on the
// stored notification so the suppression survives restarts.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"walipheros/internal/format"
	"walipheros/internal/metrics"
	"walipheros/internal/models"
	"walipheros/internal/state"

	"github.com/rs/zerolog"
)

const (
	// defaultReminderMinutes is the class reminder window when a subject has
	// no explicit lead time.
	defaultReminderMinutes = 10
	// toleranceMinutes is the wiggle room around class start and end marks.
	toleranceMinutes = 2
)

// Feed is the notification sink the sweep emits into.
type Feed interface {
	Push(ctx context.Context, title, message, category, target, dedupeKey string) (models.Notification, error)
}

type Scheduler struct {
	store    *state.Store
	feed     Feed
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger

	mu     sync.Mutex
	sent   map[string]struct{}
	cancel context.CancelFunc
}

func New(store *state.Store, feed Feed, interval time.Duration, now func() time.Time, log zerolog.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:    store,
		feed:     feed,
		interval: interval,
		now:      now,
		log:      log.With().Str("component", "scheduler").Logger(),
		sent:     make(map[string]struct{}),
	}
}

// Start begins the sweep loop, running one sweep immediately. Calling Start
// again cancels the previous loop before creating a new one; two loops never
// run at once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.seedFromHistory()
	s.Sweep(runCtx)
	go s.loop(runCtx)
}

// Stop cancels the running loop, if any.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs every condition check once. A malformed schedule, bill or task
// entry is skipped for that entry only; nothing here is fatal.
func (s *Scheduler) Sweep(ctx context.Context) {
	snapshot := s.store.Snapshot()
	now := s.now()
	s.checkBills(ctx, snapshot, now)
	s.checkClasses(ctx, snapshot, now)
	s.checkTasks(ctx, snapshot, now)
	metrics.Sweeps.Inc()
}

// seedFromHistory rebuilds the in-memory de-dup set from the keys stored on
// surviving notifications, so a restart does not re-fire old alerts.
func (s *Scheduler) seedFromHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.View(func(st *models.State) {
		for _, n := range st.Notifications {
			if n.DedupeKey != "" {
				s.sent[n.DedupeKey] = struct{}{}
			}
		}
	})
}

// claim records key as sent and reports whether it was new. Already-claimed
// keys suppress the emission.
func (s *Scheduler) claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.sent[key]; seen {
		return false
	}
	s.sent[key] = struct{}{}
	return true
}

func (s *Scheduler) emit(ctx context.Context, key, title, message, category string) {
	if !s.claim(key) {
		return
	}
	if _, err := s.feed.Push(ctx, title, message, category, "", key); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("notification push failed")
	}
}

func (s *Scheduler) checkBills(ctx context.Context, st models.State, now time.Time) {
	today := now.Day()
	tomorrow := now.AddDate(0, 0, 1).Day()
	for _, bill := range st.Finance.PendingExpenses {
		due, err := time.Parse("2006-01-02", bill.DueDate)
		if err != nil {
			continue
		}
		// Day-of-month matching only: a bill re-fires on its day every month
		// until paid. Known limitation inherited from the dashboard.
		switch due.Day() {
		case today:
			key := fmt.Sprintf("fin-bill-%s-%d", bill.Description, today)
			s.emit(ctx, key, "Pago Pendiente", "Hoy vence pago de: "+bill.Description, models.CategoryFinance)
		case tomorrow:
			key := fmt.Sprintf("fin-warn-%s-%d", bill.Description, today)
			s.emit(ctx, key, "Aviso de Pago", "Mañana vence: "+bill.Description, models.CategoryFinance)
		}
	}
}

func (s *Scheduler) checkClasses(ctx context.Context, st models.State, now time.Time) {
	weekday := int(now.Weekday())
	nowMinutes := now.Hour()*60 + now.Minute()
	for _, subj := range st.Schedule {
		if subj.Weekday != weekday {
			continue
		}
		startMin, err := format.ParseClock(subj.Start)
		if err != nil {
			continue
		}
		endMin, err := format.ParseClock(subj.End)
		if err != nil {
			continue
		}
		untilStart := startMin - nowMinutes
		untilEnd := endMin - nowMinutes
		reminder := subj.NotifyBefore
		if reminder <= 0 {
			reminder = defaultReminderMinutes
		}

		if untilStart > 0 && untilStart <= reminder {
			key := fmt.Sprintf("class-soon-%s-%d", subj.Code, weekday)
			msg := fmt.Sprintf("%s comienza en %d min. Aula: %s", subj.Name, untilStart, subj.Room)
			s.emit(ctx, key, "Próxima Clase", msg, models.CategoryClass)
		}
		if untilStart <= 0 && untilStart > -toleranceMinutes {
			key := fmt.Sprintf("class-now-%s-%d", subj.Code, weekday)
			s.emit(ctx, key, "Clase Iniciando", subj.Name+" está comenzando ahora.", models.CategoryClass)
		}
		if untilEnd <= 0 && untilEnd > -toleranceMinutes {
			key := fmt.Sprintf("class-done-%s-%d", subj.Code, weekday)
			s.emit(ctx, key, "Clase Finalizada", subj.Name+" ha terminado.", models.CategoryClass)
		}
	}
}

func (s *Scheduler) checkTasks(ctx context.Context, st models.State, now time.Time) {
	const (
		hourMillis = int64(time.Hour / time.Millisecond)
		dayMillis  = 24 * hourMillis
	)
	nowMillis := now.UnixMilli()
	for _, todo := range st.Todos {
		if todo.Completed || todo.Deadline == 0 {
			continue
		}
		diff := todo.Deadline - nowMillis
		instance := fmt.Sprintf("task-%d-%d", todo.ID, todo.Deadline)

		// The one-hour bucket just under the 24h mark.
		if diff > dayMillis-hourMillis && diff < dayMillis {
			s.emit(ctx, "warn-1d-"+instance, "Aviso de Tarea",
				fmt.Sprintf("%q vence mañana (24h).", todo.Text), models.CategoryTask)
		}
		if diff > 0 && diff < hourMillis {
			s.emit(ctx, "warn-1h-"+instance, "Tarea Próxima",
				fmt.Sprintf("%q vence en menos de 1 hora.", todo.Text), models.CategoryTask)
		}
		if diff < 0 {
			s.emit(ctx, "late-"+instance, "Tarea Vencida",
				fmt.Sprintf("%q ha vencido.", todo.Text), models.CategoryTask)
		}
	}
}
