package memory

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/tunehub/internal/crypto"
	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
)

type sessionEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// SessionStore keeps refresh-token sessions keyed by token fingerprint.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
}

// NewSessionStore constructs an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]sessionEntry)}
}

// Save records the session for rec.RefreshToken, replacing any previous record.
func (s *SessionStore) Save(_ context.Context, rec model.SessionRecord) error {
	s.mu.Lock()
	s.sessions[crypto.Fingerprint(rec.RefreshToken)] = sessionEntry{userID: rec.UserID, expiresAt: rec.ExpiresAt}
	s.mu.Unlock()
	return nil
}

// Find retrieves the session for refreshToken.
func (s *SessionStore) Find(_ context.Context, refreshToken string) (*model.SessionRecord, error) {
	s.mu.RLock()
	e, ok := s.sessions[crypto.Fingerprint(refreshToken)]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &model.SessionRecord{UserID: e.userID, RefreshToken: refreshToken, ExpiresAt: e.expiresAt}, nil
}

// Remove deletes the session for refreshToken.
func (s *SessionStore) Remove(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	delete(s.sessions, crypto.Fingerprint(refreshToken))
	s.mu.Unlock()
	return nil
}

// Rotate swaps oldToken for next under one lock.
func (s *SessionStore) Rotate(_ context.Context, oldToken string, next model.SessionRecord) error {
	old := crypto.Fingerprint(oldToken)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[old]; !ok {
		return errs.ErrNotFound
	}
	delete(s.sessions, old)
	s.sessions[crypto.Fingerprint(next.RefreshToken)] = sessionEntry{userID: next.UserID, expiresAt: next.ExpiresAt}
	return nil
}

// RemoveAllForUser deletes every session of userID.
func (s *SessionStore) RemoveAllForUser(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	for k, e := range s.sessions {
		if e.userID == userID {
			delete(s.sessions, k)
		}
	}
	s.mu.Unlock()
	return nil
}

// DeleteExpired removes sessions that expired before now.
func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	s.mu.Lock()
	for k, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, k)
			n++
		}
	}
	s.mu.Unlock()
	return n, nil
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
