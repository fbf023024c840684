package chat

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/poiesic/docchat/core"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = time.Hour

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is one conversation with a data source.
type Session struct {
	ID      string
	Source  string
	History []core.Message
}

// Sessions keeps conversations in memory. Sessions expire after the TTL
// without activity.
type Sessions struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewSessions creates a session store. A non-positive ttl uses DefaultSessionTTL.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		cache: cache.New(ttl, ttl/2),
	}
}

// Create starts an empty session for source.
func (s *Sessions) Create(source string) *Session {
	session := &Session{ID: uuid.New().String(), Source: source}
	s.cache.Set(session.ID, session, cache.DefaultExpiration)
	return copySession(session)
}

// Get returns a copy of the session and extends its lifetime.
func (s *Sessions) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.get(id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, session, cache.DefaultExpiration)
	return copySession(session), nil
}

// Append adds messages to the session history.
func (s *Sessions) Append(id string, messages ...core.Message) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.get(id)
	if err != nil {
		return nil, err
	}
	session.History = append(session.History, messages...)
	s.cache.Set(id, session, cache.DefaultExpiration)
	return copySession(session), nil
}

// Delete removes the session. Deleting an unknown session is not an error.
func (s *Sessions) Delete(id string) {
	s.cache.Delete(id)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.cache.ItemCount()
}

func (s *Sessions) get(id string) (*Session, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return v.(*Session), nil
}

func copySession(session *Session) *Session {
	out := *session
	out.History = slices.Clone(session.History)
	return &out
}
