package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/todo-be/internal/database"
	"github.com/isdelr/todo-be/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// NewSQLStore builds a Store over a database/sql pool opened with database.New.
func NewSQLStore(db *sql.DB, dialect string) *Store {
	q := sqlQueries{db: db, dialect: dialect}
	return &Store{
		Users: &SQLUserRepository{q: q},
		Todos: &SQLTodoRepository{q: q},
		ping:  db.PingContext,
		close: func(context.Context) error { return db.Close() },
	}
}

type sqlQueries struct {
	db      *sql.DB
	dialect string
}

// rebind rewrites ? placeholders to $n for postgres.
func (q sqlQueries) rebind(query string) string {
	if q.dialect != database.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q sqlQueries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q sqlQueries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.rebind(query), args...)
}

func (q sqlQueries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}

// timestamp scans both native time values and the text sqlite hands back
// when a column's declared type is lost (RETURNING, expressions).
type timestamp struct{ t *time.Time }

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		*ts.t = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (ts timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised time %q", s)
}

// SQLUserRepository stores users in the users table.
type SQLUserRepository struct {
	q sqlQueries
}

const userColumns = "id, email, password_hash, name, created_at, updated_at"

// Create inserts a new user with a fresh UUID.
func (r *SQLUserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	_, err := r.q.exec(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.Name, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail retrieves a single user by their email, including the password hash.
func (r *SQLUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.scanOne(r.q.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

// FindByID retrieves a single user by their ID.
func (r *SQLUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.scanOne(r.q.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// Count returns the number of registered users.
func (r *SQLUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.queryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

func (r *SQLUserRepository) scanOne(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, timestamp{&u.CreatedAt}, timestamp{&u.UpdatedAt})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// SQLTodoRepository stores todos in the todos table.
type SQLTodoRepository struct {
	q sqlQueries
}

const todoColumns = "id, title, description, completed, user_id, created_at, updated_at"

// ListByOwner returns the owner's todos, newest first.
func (r *SQLTodoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Todo, error) {
	rows, err := r.q.query(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE user_id = ? ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return todos, nil
}

// Create inserts a new todo with a fresh UUID.
func (r *SQLTodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	todo.ID = uuid.New().String()
	_, err := r.q.exec(ctx,
		"INSERT INTO todos ("+todoColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		todo.ID, todo.Title, todo.Description, todo.Completed, todo.UserID, todo.CreatedAt.UTC(), todo.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

// Update applies the set fields of patch in a single statement scoped to the owner.
func (r *SQLTodoRepository) Update(ctx context.Context, id, ownerID string, patch models.TodoPatch, updatedAt time.Time) (models.Todo, error) {
	row := r.q.queryRow(ctx, `
		UPDATE todos
		SET title = COALESCE(?, title),
		    description = COALESCE(?, description),
		    completed = COALESCE(?, completed),
		    updated_at = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+todoColumns,
		patch.Title, patch.Description, patch.Completed, updatedAt.UTC(), id, ownerID)

	t, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Todo{}, ErrNotFound
		}
		return models.Todo{}, fmt.Errorf("update todo: %w", err)
	}
	return t, nil
}

// Delete removes the todo if the owner matches.
func (r *SQLTodoRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.q.exec(ctx, "DELETE FROM todos WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of todos across all users.
func (r *SQLTodoRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.queryRow(ctx, "SELECT COUNT(*) FROM todos").Scan(&n)
	return n, err
}

func scanTodo(scanner interface{ Scan(...any) error }) (models.Todo, error) {
	var t models.Todo
	err := scanner.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.UserID,
		timestamp{&t.CreatedAt}, timestamp{&t.UpdatedAt})
	return t, err
}
