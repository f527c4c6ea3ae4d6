package core

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultRoom is where every session lands right after authentication.
const DefaultRoom = "general"

// Registry is the shared table of all live sessions, keyed by session id
// and bounded by capacity. Every operation runs under one internal mutex;
// hold times are pure in-memory work, never a network write.
type Registry struct {
	mu       sync.Mutex
	capacity int
	sessions map[string]*Session
	order    []string
}

// NewRegistry creates an empty registry admitting at most capacity sessions.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		sessions: make(map[string]*Session, capacity),
	}
}

// Admit inserts a new unauthenticated session for the given channel. The
// capacity check and the insert are atomic: two racing admits can never
// both squeeze past the limit.
func (r *Registry) Admit(ch Channel) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.capacity {
		return nil, ErrServerFull
	}

	s := newSession(uuid.NewString(), ch)
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)
	return s, nil
}

// MarkAuthenticated binds a username to the session and drops it into the
// default room. Usernames are unique among live sessions; a second login
// under the same name is refused with ErrNameInUse.
func (r *Registry) MarkAuthenticated(id, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNoSuchSession
	}
	for _, other := range r.sessions {
		if other.ID != id && other.Authenticated && other.Username == username {
			return ErrNameInUse
		}
	}

	s.Username = username
	s.Room = DefaultRoom
	s.Authenticated = true
	return nil
}

// SetRoom moves the session to the named room. Any non-empty name is a
// valid room; rooms exist only through membership.
func (r *Registry) SetRoom(id, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNoSuchSession
	}
	s.Room = room
	return nil
}

// Remove deletes the session and reports its last-known identity for the
// departure announcement. Removing twice is harmless: the second call
// returns ErrAlreadyRemoved and changes nothing.
func (r *Registry) Remove(id string) (username, room string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return "", "", ErrAlreadyRemoved
	}

	delete(r.sessions, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return s.Username, s.Room, nil
}

// Get returns a point-in-time view of one session.
func (r *Registry) Get(id string) (SessionView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return SessionView{}, false
	}
	return viewOf(s), true
}

// Snapshot returns a consistent copy of all live sessions in insertion
// order. Callers iterate the snapshot outside the lock; it does not track
// later mutations.
func (r *Registry) Snapshot() []SessionView {
	r.mu.Lock()
	defer r.mu.Unlock()

	views := make([]SessionView, 0, len(r.order))
	for _, id := range r.order {
		views = append(views, viewOf(r.sessions[id]))
	}
	return views
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func viewOf(s *Session) SessionView {
	return SessionView{
		ID:            s.ID,
		Username:      s.Username,
		Room:          s.Room,
		Authenticated: s.Authenticated,
		sess:          s,
	}
}
