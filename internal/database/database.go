package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Dialects understood by New and Migrate.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// New creates a new database connection pool for the given dialect.
// For sqlite dsn is a file path, for postgres a connection URL.
func New(dialect, dsn string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case SQLite:
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, err
		}
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	case Postgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sql.DB, dialect string) error {
	timeType := "DATETIME"
	if dialect == Postgres {
		timeType = "TIMESTAMPTZ"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT NOT NULL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at ` + timeType + ` NOT NULL,
			updated_at ` + timeType + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			id TEXT NOT NULL PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			created_at ` + timeType + ` NOT NULL,
			updated_at ` + timeType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user_created ON todos (user_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
