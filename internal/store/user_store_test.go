package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func TestUserStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO users") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 4 || args[0] != "user-1" || args[1] != "wali" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewUserStore(stubDB{})
	if err := store.Create(ctx, execer, "user-1", "wali", "wali@example.com", "hash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUserStoreGetByEmail(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE email = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "wali@example.com" {
				t.Fatalf("unexpected args: %#v", args)
			}
			row := dest.(*userRow)
			*row = userRow{ID: "user-1", Username: "wali", PasswordHash: "hash"}
			return nil
		},
	})
	row, err := store.GetByEmail(ctx, "wali@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row["id"] != "user-1" || row["password_hash"] != "hash" {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestUserStoreGetByIDNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		getFn: func(context.Context, any, string, ...any) error {
			return sql.ErrNoRows
		},
	})
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
