package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/todo-be/internal/database"
	"github.com/isdelr/todo-be/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(database.SQLite, filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("could not open sqlite: %v", err)
	}
	if err := database.Migrate(db, database.SQLite); err != nil {
		t.Fatalf("could not migrate: %v", err)
	}
	store := NewSQLStore(db, database.SQLite)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

func seedUser(t *testing.T, store *Store, email string) models.User {
	t.Helper()
	now := time.Now().UTC()
	u := models.User{Email: email, PasswordHash: "fake-hash", Name: "Test", CreatedAt: now, UpdatedAt: now}
	if err := store.Users.Create(context.Background(), &u); err != nil {
		t.Fatalf("could not seed user: %v", err)
	}
	return u
}

func TestRebind(t *testing.T) {
	pg := sqlQueries{dialect: database.Postgres}
	if got := pg.rebind("SELECT 1 WHERE a = ? AND b = ?"); got != "SELECT 1 WHERE a = $1 AND b = $2" {
		t.Errorf("unexpected postgres rebind: %s", got)
	}
	lite := sqlQueries{dialect: database.SQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite query should be untouched, got %s", got)
	}
}

func TestSQLUserRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	u := seedUser(t, store, "ada@example.com")
	if u.ID == "" {
		t.Fatal("expected Create to assign an id")
	}

	got, err := store.Users.FindByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "fake-hash" || got.Name != "Test" {
		t.Errorf("unexpected user: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to round-trip")
	}

	if _, err := store.Users.FindByID(ctx, u.ID); err != nil {
		t.Errorf("FindByID: %v", err)
	}
	if _, err := store.Users.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	dup := models.User{Email: "ada@example.com", PasswordHash: "x", Name: "Other", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.Users.Create(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	n, err := store.Users.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("expected 1 user, got %d (%v)", n, err)
	}
}

func TestSQLTodoRepositoryOwnerScoping(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := seedUser(t, store, "alice@example.com")
	bob := seedUser(t, store, "bob@example.com")

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var created []models.Todo
	for i, title := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Second)
		todo := models.Todo{Title: title, UserID: alice.ID, CreatedAt: at, UpdatedAt: at}
		if err := store.Todos.Create(ctx, &todo); err != nil {
			t.Fatalf("Create: %v", err)
		}
		created = append(created, todo)
	}

	list, err := store.Todos.ListByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 todos, got %d", len(list))
	}
	if list[0].Title != "third" || list[2].Title != "first" {
		t.Errorf("expected newest first, got %s..%s", list[0].Title, list[2].Title)
	}

	bobs, err := store.Todos.ListByOwner(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(bobs) != 0 {
		t.Errorf("expected bob to see no todos, got %d", len(bobs))
	}

	done := true
	if _, err := store.Todos.Update(ctx, created[0].ID, bob.ID, models.TodoPatch{Completed: &done}, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on foreign update, got %v", err)
	}
	if err := store.Todos.Delete(ctx, created[0].ID, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on foreign delete, got %v", err)
	}

	updated, err := store.Todos.Update(ctx, created[0].ID, alice.ID, models.TodoPatch{Completed: &done}, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Completed || updated.Title != "first" {
		t.Errorf("expected only completed to change, got %+v", updated)
	}
	if !updated.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("expected updated_at %s, got %s", base.Add(time.Hour), updated.UpdatedAt)
	}

	if err := store.Todos.Delete(ctx, created[0].ID, alice.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Todos.Delete(ctx, created[0].ID, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected second delete to be ErrNotFound, got %v", err)
	}

	n, err := store.Todos.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("expected 2 todos left, got %d (%v)", n, err)
	}
}

func TestSQLTodoRepositoryRequiresExistingOwner(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	todo := models.Todo{Title: "orphan", UserID: "no-such-user", CreatedAt: now, UpdatedAt: now}
	if err := store.Todos.Create(context.Background(), &todo); err == nil {
		t.Error("expected foreign key violation for unknown owner")
	}
}

func TestTimestampScan(t *testing.T) {
	want := time.Date(2026, 3, 4, 5, 6, 7, 890000000, time.UTC)
	testCases := []struct {
		name string
		src  any
	}{
		{name: "time value", src: want},
		{name: "sqlite text", src: "2026-03-04 05:06:07.89+00:00"},
		{name: "rfc3339 bytes", src: []byte("2026-03-04T05:06:07.89Z")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got time.Time
			if err := (timestamp{&got}).Scan(tc.src); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("expected %s, got %s", want, got)
			}
		})
	}
	var got time.Time
	if err := (timestamp{&got}).Scan(42); err == nil {
		t.Error("expected error for integer source")
	}
}
