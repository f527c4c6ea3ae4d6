package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Lookup for an unknown username.
var ErrNotFound = errors.New("credential not found")

// Credential is one stored username/password-hash record.
type Credential struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    time.Time
}

// CredentialStore handles credential persistence. The gate serializes
// callers, so implementations only need to be internally consistent.
type CredentialStore interface {
	// Lookup retrieves a credential by username.
	Lookup(ctx context.Context, username string) (*Credential, error)

	// Create persists a new credential. The username must not exist yet.
	Create(ctx context.Context, username, passwordHash string) (*Credential, error)

	// TouchLogin records a successful login for the username.
	TouchLogin(ctx context.Context, username string) error

	// Close releases the underlying storage resource.
	Close() error
}
