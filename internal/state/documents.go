package state

import (
	"context"
	"encoding/json"

	"walipheros/internal/models"
	"walipheros/internal/store"

	"github.com/rs/zerolog"
)

// Document envelope shapes used by the hosted store: list categories wrap
// their slice, notes wrap their text, finance and preferences are stored flat.
type listDocument[T any] struct {
	List []T `json:"list"`
}

type notesDocument struct {
	Content string `json:"content"`
}

// FromDocuments assembles a state from the per-category document bag,
// backfilling defaults for anything missing or malformed.
func FromDocuments(documents map[string]json.RawMessage) models.State {
	st := models.NewState()
	if raw, ok := documents[store.CategoryTodos]; ok {
		var doc listDocument[models.Todo]
		if json.Unmarshal(raw, &doc) == nil && doc.List != nil {
			st.Todos = doc.List
		}
	}
	if raw, ok := documents[store.CategorySchedule]; ok {
		var doc listDocument[models.Subject]
		if json.Unmarshal(raw, &doc) == nil && doc.List != nil {
			st.Schedule = doc.List
		}
	}
	if raw, ok := documents[store.CategoryNotes]; ok {
		var doc notesDocument
		if json.Unmarshal(raw, &doc) == nil {
			st.Notes = doc.Content
		}
	}
	if raw, ok := documents[store.CategoryFinance]; ok {
		var finance models.FinanceData
		if json.Unmarshal(raw, &finance) == nil {
			if finance.History == nil {
				finance.History = []models.HistoryEntry{}
			}
			if finance.PendingExpenses == nil {
				finance.PendingExpenses = []models.PendingBill{}
			}
			st.Finance = finance
		}
	}
	if raw, ok := documents[store.CategoryNotifications]; ok {
		var doc listDocument[models.Notification]
		if json.Unmarshal(raw, &doc) == nil && doc.List != nil {
			st.Notifications = doc.List
		}
	}
	if raw, ok := documents[store.CategoryLinks]; ok {
		var doc listDocument[models.Link]
		if json.Unmarshal(raw, &doc) == nil && doc.List != nil {
			st.Links = doc.List
		}
	}
	if raw, ok := documents[store.CategoryPreferences]; ok {
		var prefs models.Preferences
		if json.Unmarshal(raw, &prefs) == nil {
			st.Preferences = prefs
		}
	}
	return st
}

// Documents splits a state back into its category payloads.
func Documents(st models.State) map[string]any {
	return map[string]any{
		store.CategoryTodos:         listDocument[models.Todo]{List: st.Todos},
		store.CategorySchedule:      listDocument[models.Subject]{List: st.Schedule},
		store.CategoryNotes:         notesDocument{Content: st.Notes},
		store.CategoryFinance:       st.Finance,
		store.CategoryNotifications: listDocument[models.Notification]{List: st.Notifications},
		store.CategoryLinks:         listDocument[models.Link]{List: st.Links},
		store.CategoryPreferences:   st.Preferences,
	}
}

// DocumentPersister writes each category of a snapshot as its own document,
// continuing past individual failures and reporting the last one.
type DocumentPersister struct {
	docs   *store.DocumentStore
	userID string
	log    zerolog.Logger
}

func NewDocumentPersister(docs *store.DocumentStore, userID string, log zerolog.Logger) *DocumentPersister {
	return &DocumentPersister{
		docs:   docs,
		userID: userID,
		log:    log.With().Str("component", "persist").Logger(),
	}
}

func (p *DocumentPersister) Save(ctx context.Context, snapshot models.State) error {
	var lastErr error
	for category, payload := range Documents(snapshot) {
		if err := p.docs.Upsert(ctx, p.userID, category, payload); err != nil {
			p.log.Error().Err(err).Str("category", category).Msg("document write failed")
			lastErr = err
		}
	}
	return lastErr
}
