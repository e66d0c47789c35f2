package store

import (
	"context"
	"encoding/json"
)

// Category identifiers for the per-user document bag. Each category is one
// opaque JSON document; the store makes no assumptions about its shape.
const (
	CategoryTodos         = "todos"
	CategorySchedule      = "schedule"
	CategoryNotes         = "notes"
	CategoryFinance       = "finanzas"
	CategoryNotifications = "notifications"
	CategoryLinks         = "links"
	CategoryPreferences   = "preferences"
)

type DocumentStore struct {
	db DB
}

func NewDocumentStore(db DB) *DocumentStore {
	return &DocumentStore{db: db}
}

type documentRow struct {
	Category string `db:"category"`
	Payload  []byte `db:"payload"`
}

// Upsert writes one category document for a user, replacing any previous
// payload for that category.
func (s *DocumentStore) Upsert(ctx context.Context, userID, category string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO user_documents (user_id, category, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, category)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, query, userID, category, body)
	return err
}

// LoadAll returns every category document for a user keyed by category.
// A user with no documents yet yields an empty map, not an error.
func (s *DocumentStore) LoadAll(ctx context.Context, userID string) (map[string]json.RawMessage, error) {
	var rows []documentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT category, payload
		FROM user_documents
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	documents := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		documents[row.Category] = json.RawMessage(row.Payload)
	}
	return documents, nil
}

// DeleteAll removes every document a user owns. Used by the factory reset.
func (s *DocumentStore) DeleteAll(ctx context.Context, tx Execer, userID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM user_documents WHERE user_id = $1`, userID)
	return err
}
