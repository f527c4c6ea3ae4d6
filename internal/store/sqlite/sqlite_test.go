package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/netchat/netchat-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Lookup(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("lookup unknown: got %v, want ErrNotFound", err)
	}

	created, err := s.Create(ctx, "alice", "hash-a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Username != "alice" || created.PasswordHash != "hash-a" {
		t.Fatalf("unexpected credential: %+v", created)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}

	if _, err := s.Create(ctx, "alice", "hash-b"); err == nil {
		t.Fatal("duplicate create succeeded")
	}
}

func TestTouchLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.TouchLogin(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("touch unknown: got %v, want ErrNotFound", err)
	}

	if _, err := s.Create(ctx, "alice", "hash-a"); err != nil {
		t.Fatalf("create: %v", err)
	}

	cred, err := s.Lookup(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !cred.LastLogin.IsZero() {
		t.Fatalf("last login set before any login: %v", cred.LastLogin)
	}

	if err := s.TouchLogin(ctx, "alice"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	cred, err = s.Lookup(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup after touch: %v", err)
	}
	if cred.LastLogin.IsZero() {
		t.Fatal("last login not recorded")
	}
}
