// Package credfile implements the credential store as a flat text file,
// one "username:hash" record per line. Records are only ever appended;
// the whole file is loaded once on open.
package credfile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/netchat/netchat-server/internal/store"
)

const fieldDelimiter = ":"

// Store implements store.CredentialStore over an append-only file.
type Store struct {
	mu    sync.Mutex
	f     *os.File
	creds map[string]*store.Credential
}

// New opens (creating if needed) the credential file and loads every
// record into memory. Malformed lines are skipped.
func New(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open credential file: %w", err)
	}

	creds := make(map[string]*store.Credential)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		username, hash, ok := strings.Cut(scanner.Text(), fieldDelimiter)
		if !ok || username == "" || hash == "" {
			continue
		}
		creds[username] = &store.Credential{
			Username:     username,
			PasswordHash: hash,
		}
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	return &Store{f: f, creds: creds}, nil
}

// Lookup retrieves a credential by username.
func (s *Store) Lookup(_ context.Context, username string) (*store.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *cred
	return &c, nil
}

// Create appends a new record to the file and the in-memory table.
func (s *Store) Create(_ context.Context, username, passwordHash string) (*store.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creds[username]; ok {
		return nil, fmt.Errorf("credential already exists: %s", username)
	}

	if _, err := fmt.Fprintf(s.f, "%s%s%s\n", username, fieldDelimiter, passwordHash); err != nil {
		return nil, fmt.Errorf("append credential: %w", err)
	}

	cred := &store.Credential{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.creds[username] = cred
	c := *cred
	return &c, nil
}

// TouchLogin records the login time in memory only; the file format has
// no timestamp field.
func (s *Store) TouchLogin(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[username]
	if !ok {
		return store.ErrNotFound
	}
	cred.LastLogin = time.Now()
	return nil
}

// Close closes the underlying file.
func (s *Store) Close() error {
	return s.f.Close()
}
