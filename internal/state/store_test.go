package state

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"walipheros/internal/models"
	"walipheros/internal/store"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type recordingPersister struct {
	saves []models.State
	err   error
}

func (p *recordingPersister) Save(_ context.Context, snapshot models.State) error {
	p.saves = append(p.saves, snapshot)
	return p.err
}

func TestMutateAppliesAndPersists(t *testing.T) {
	persister := &recordingPersister{}
	s := NewStore(models.NewState(), persister, zerolog.Nop())

	err := s.Mutate(context.Background(), func(st *models.State) error {
		st.Notes = "hola"
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Snapshot().Notes; got != "hola" {
		t.Fatalf("expected notes applied, got %q", got)
	}
	if len(persister.saves) != 1 || persister.saves[0].Notes != "hola" {
		t.Fatalf("expected 1 save with applied state, got %#v", persister.saves)
	}
}

func TestMutateErrorSkipsPersistAndListeners(t *testing.T) {
	persister := &recordingPersister{}
	s := NewStore(models.NewState(), persister, zerolog.Nop())
	fired := 0
	s.Subscribe(func(models.State) { fired++ })

	wantErr := errors.New("nope")
	err := s.Mutate(context.Background(), func(*models.State) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected mutation error back, got %v", err)
	}
	if len(persister.saves) != 0 || fired != 0 {
		t.Fatalf("rejected mutation must not persist or notify (saves=%d fired=%d)", len(persister.saves), fired)
	}
}

func TestMutateSaveFailureKeepsState(t *testing.T) {
	persister := &recordingPersister{err: errors.New("store down")}
	s := NewStore(models.NewState(), persister, zerolog.Nop())
	fired := 0
	s.Subscribe(func(models.State) { fired++ })

	err := s.Mutate(context.Background(), func(st *models.State) error {
		st.Notes = "optimista"
		return nil
	})
	if err != nil {
		t.Fatalf("save failure must not surface: %v", err)
	}
	if got := s.Snapshot().Notes; got != "optimista" {
		t.Fatalf("expected optimistic state kept, got %q", got)
	}
	if fired != 1 {
		t.Fatalf("listeners must still fire, fired=%d", fired)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore(models.NewState(), &recordingPersister{}, zerolog.Nop())
	s.Mutate(context.Background(), func(st *models.State) error {
		st.Todos = append(st.Todos, models.Todo{ID: 1, Text: "original"})
		return nil
	})

	snap := s.Snapshot()
	snap.Todos[0].Text = "mutated copy"
	if got := s.Snapshot().Todos[0].Text; got != "original" {
		t.Fatalf("snapshot aliased internal state: %q", got)
	}
}

func TestReplaceNotifiesWithoutPersisting(t *testing.T) {
	persister := &recordingPersister{}
	s := NewStore(models.NewState(), persister, zerolog.Nop())
	var seen []models.State
	s.Subscribe(func(st models.State) { seen = append(seen, st) })

	next := models.NewState()
	next.Notes = "cargado"
	s.Replace(next)

	if len(persister.saves) != 0 {
		t.Fatalf("replace must not persist")
	}
	if len(seen) != 1 || seen[0].Notes != "cargado" {
		t.Fatalf("listener did not see replaced state: %#v", seen)
	}
}

func TestFromDocumentsRoundTrip(t *testing.T) {
	st := models.NewState()
	st.Todos = []models.Todo{{ID: 3, Text: "leer"}}
	st.Notes = "apuntes"
	st.Finance.Cash = decimal.NewFromInt(250)
	st.Finance.PendingExpenses = []models.PendingBill{
		{Description: "Luz", Amount: decimal.NewFromInt(90), DueDate: "2024-03-10"},
	}
	st.Preferences = models.Preferences{Theme: "dark", Name: "Wali"}

	raw := make(map[string]json.RawMessage)
	for category, payload := range Documents(st) {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal %s: %v", category, err)
		}
		raw[category] = data
	}

	loaded := FromDocuments(raw)
	if len(loaded.Todos) != 1 || loaded.Todos[0].Text != "leer" {
		t.Fatalf("todos lost: %#v", loaded.Todos)
	}
	if loaded.Notes != "apuntes" {
		t.Fatalf("notes lost: %q", loaded.Notes)
	}
	if !loaded.Finance.Cash.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("cash lost: %s", loaded.Finance.Cash)
	}
	if len(loaded.Finance.PendingExpenses) != 1 {
		t.Fatalf("bills lost: %#v", loaded.Finance.PendingExpenses)
	}
	if loaded.Preferences.Theme != "dark" {
		t.Fatalf("preferences lost: %#v", loaded.Preferences)
	}
}

func TestFromDocumentsDefaults(t *testing.T) {
	loaded := FromDocuments(map[string]json.RawMessage{
		store.CategoryNotes: json.RawMessage(`{"content":"solo notas"}`),
		store.CategoryTodos: json.RawMessage(`not json`),
	})
	if loaded.Notes != "solo notas" {
		t.Fatalf("notes not loaded: %q", loaded.Notes)
	}
	if loaded.Todos == nil || len(loaded.Todos) != 0 {
		t.Fatalf("malformed todos must fall back to empty slice: %#v", loaded.Todos)
	}
	if loaded.Finance.History == nil || loaded.Finance.PendingExpenses == nil {
		t.Fatalf("finance defaults missing")
	}
}
