package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/idowu-gb/MAD-Project/server/auth"
	"github.com/idowu-gb/MAD-Project/server/session"
)

type registeredSession struct {
	session   *session.Session
	createdAt time.Time
}

// sessionRegistry maps the session id carried in a token's 'jti' to its *session.Session
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]registeredSession
	ttl      time.Duration
	now      func() time.Time
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]registeredSession),
		ttl:      auth.TOKEN_TTL,
		now:      time.Now,
	}
}

// add registers 's' under a new id. Sessions whose tokens have expired are dropped.
func (registry *sessionRegistry) add(s *session.Session) string {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	now := registry.now()
	for id, registered := range registry.sessions {
		if now.Sub(registered.createdAt) > registry.ttl {
			delete(registry.sessions, id)
		}
	}

	id := uuid.NewString()
	registry.sessions[id] = registeredSession{session: s, createdAt: now}

	return id
}

func (registry *sessionRegistry) get(id string) (*session.Session, bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	registered, ok := registry.sessions[id]
	if !ok || registry.now().Sub(registered.createdAt) > registry.ttl {
		return nil, false
	}

	return registered.session, true
}

func (registry *sessionRegistry) remove(id string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	delete(registry.sessions, id)
}

func (registry *sessionRegistry) count() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	return len(registry.sessions)
}
