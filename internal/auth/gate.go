package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/netchat/netchat-server/internal/store"
)

var (
	// ErrEmptyCredential is returned when username or password is empty
	// after sanitizing.
	ErrEmptyCredential = errors.New("empty username or password")
	// ErrWrongPassword is returned when the password does not match.
	ErrWrongPassword = errors.New("wrong password")
	// ErrUserExists is returned by Register for a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when a username fails the API constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when a password fails the API constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

// Gate is the authentication and registration boundary in front of the
// credential store. Its mutex serializes lookups and appends, so two
// concurrent first-time logins with one name cannot both provision it.
type Gate struct {
	mu    sync.Mutex
	store store.CredentialStore
	jwt   *JWTConfig
}

// NewGate builds a gate over the given store.
func NewGate(credStore store.CredentialStore, jwtConfig *JWTConfig) *Gate {
	return &Gate{
		store: credStore,
		jwt:   jwtConfig,
	}
}

// AuthenticateOrRegister validates the pair against the store and returns
// the canonical username: callers must register that form, not the raw
// input, or the live identity diverges from the stored credential. An
// unknown username claims the name: the account is provisioned on first
// use. Conflating login and signup keeps compatibility with the original
// line-protocol clients; stricter transports use Register and Login.
func (g *Gate) AuthenticateOrRegister(ctx context.Context, username, password string) (string, error) {
	username = Sanitize(username)
	password = Sanitize(password)
	if username == "" || password == "" {
		return "", ErrEmptyCredential
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.store.Lookup(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		hash, hashErr := HashPassword(password)
		if hashErr != nil {
			return "", hashErr
		}
		if _, createErr := g.store.Create(ctx, username, hash); createErr != nil {
			return "", fmt.Errorf("provision credential: %w", createErr)
		}
		return username, nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup credential: %w", err)
	}

	if ComparePassword(cred.PasswordHash, password) != nil {
		return "", ErrWrongPassword
	}
	_ = g.store.TouchLogin(ctx, username)
	return username, nil
}

// Register creates a new account and returns a signed token. Unlike the
// line-protocol gate it refuses names that already exist.
func (g *Gate) Register(ctx context.Context, username, password string) (string, error) {
	username = Sanitize(username)
	password = Sanitize(password)
	if len(username) < 3 || len(username) > 32 {
		return "", ErrInvalidUsername
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.store.Lookup(ctx, username); err == nil {
		return "", ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("lookup credential: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := g.store.Create(ctx, username, hash); err != nil {
		return "", fmt.Errorf("create credential: %w", err)
	}

	return GenerateToken(g.jwt, username)
}

// Login validates credentials and returns a signed token.
func (g *Gate) Login(ctx context.Context, username, password string) (string, error) {
	username = Sanitize(username)
	password = Sanitize(password)

	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.store.Lookup(ctx, username)
	if err != nil {
		return "", ErrWrongPassword
	}
	if ComparePassword(cred.PasswordHash, password) != nil {
		return "", ErrWrongPassword
	}
	_ = g.store.TouchLogin(ctx, username)

	return GenerateToken(g.jwt, username)
}

// Profile returns the stored record for a username.
func (g *Gate) Profile(ctx context.Context, username string) (*store.Credential, error) {
	return g.store.Lookup(ctx, username)
}

// ValidateToken validates a token and returns its claims.
func (g *Gate) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(g.jwt, tokenString)
}

// Sanitize trims whitespace and strips the store's field delimiter and
// line terminators from a credential field.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
