// Package sqlite implements the credential store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/netchat/netchat-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_login    DATETIME
);
`

// Store implements store.CredentialStore for SQLite.
type Store struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup opens the database and runs a setup function before use.
// Tests use it to apply a custom schema against ":memory:".
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Lookup retrieves a credential by username.
func (s *Store) Lookup(ctx context.Context, username string) (*store.Credential, error) {
	query := `
		SELECT username, password_hash, created_at, last_login
		FROM credentials
		WHERE username = ?
	`
	var cred store.Credential
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&cred.Username, &cred.PasswordHash, &cred.CreatedAt, &lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select credential: %w", err)
	}
	if lastLogin.Valid {
		cred.LastLogin = lastLogin.Time
	}
	return &cred, nil
}

// Create persists a new credential.
func (s *Store) Create(ctx context.Context, username, passwordHash string) (*store.Credential, error) {
	query := `INSERT INTO credentials (username, password_hash) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, username, passwordHash); err != nil {
		return nil, fmt.Errorf("insert credential: %w", err)
	}
	return s.Lookup(ctx, username)
}

// TouchLogin records a successful login.
func (s *Store) TouchLogin(ctx context.Context, username string) error {
	query := `UPDATE credentials SET last_login = CURRENT_TIMESTAMP WHERE username = ?`
	res, err := s.db.ExecContext(ctx, query, username)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
