package credfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/netchat/netchat-server/internal/store"
)

func TestCreateAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	s, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if _, err := s.Lookup(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("lookup unknown: got %v, want ErrNotFound", err)
	}

	if _, err := s.Create(ctx, "alice", "hash-a"); err != nil {
		t.Fatalf("create: %v", err)
	}
	cred, err := s.Lookup(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if cred.PasswordHash != "hash-a" {
		t.Fatalf("stored hash %q, want hash-a", cred.PasswordHash)
	}

	if _, err := s.Create(ctx, "alice", "hash-b"); err == nil {
		t.Fatal("duplicate create succeeded")
	}
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Create(ctx, "alice", "hash-a"); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if _, err := s.Create(ctx, "bob", "hash-b"); err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	for _, username := range []string{"alice", "bob"} {
		if _, err := reopened.Lookup(ctx, username); err != nil {
			t.Fatalf("lookup %s after reopen: %v", username, err)
		}
	}
}

func TestFileLayoutIsOneRecordPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	s, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.Create(context.Background(), "alice", "hash-a"); err != nil {
		t.Fatalf("create: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "alice:hash-a\n" {
		t.Fatalf("unexpected file contents: %q", data)
	}
}

func TestTouchLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	s, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if err := s.TouchLogin(ctx, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("touch unknown: got %v, want ErrNotFound", err)
	}

	if _, err := s.Create(ctx, "alice", "hash-a"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.TouchLogin(ctx, "alice"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	cred, err := s.Lookup(ctx, "alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if cred.LastLogin.IsZero() {
		t.Fatal("last login not recorded")
	}
}
