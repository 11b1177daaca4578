// Package memory contains in-memory repository implementations intended for
// development, tests and single-instance deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/and161185/tunehub/internal/toggle"
	"github.com/gofrs/uuid/v5"
)

// AccountStore keeps accounts in a map guarded by a single mutex. It is safe for concurrent use.
type AccountStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*model.User
}

// NewAccountStore constructs an empty store.
func NewAccountStore() *AccountStore {
	return &AccountStore{users: make(map[uuid.UUID]*model.User)}
}

// Create inserts u, enforcing unique email and username.
func (s *AccountStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("%w: id", errs.ErrAlreadyExists)
	}
	for _, v := range s.users {
		if v.Email == u.Email {
			return fmt.Errorf("%w: email", errs.ErrAlreadyExists)
		}
		if v.Username == u.Username {
			return fmt.Errorf("%w: username", errs.ErrAlreadyExists)
		}
	}
	c := copyUser(u)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.users[u.ID] = c
	return nil
}

// GetByID returns a copy of the user with the given id.
func (s *AccountStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return copyUser(u), nil
}

// GetByUsername returns a copy of the user with the given username.
func (s *AccountStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Username == username })
}

// GetByEmail returns a copy of the user with the given email.
func (s *AccountStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Email == email })
}

func (s *AccountStore) find(match func(*model.User) bool) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, errs.ErrNotFound
}

// UpdateSet applies op to relation under the store lock.
func (s *AccountStore) UpdateSet(_ context.Context, id uuid.UUID, relation model.Relation, op model.SetOp, value string) (*model.User, error) {
	if !relation.Valid() {
		return nil, fmt.Errorf("%w: relation %q", errs.ErrValidation, relation)
	}
	if op != model.OpAdd && op != model.OpRemove {
		return nil, fmt.Errorf("%w: op %v", errs.ErrValidation, op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	set := u.Set(relation)
	*set = toggle.Apply(*set, op, value)
	return copyUser(u), nil
}

// ToggleSet flips membership of value under the store lock.
func (s *AccountStore) ToggleSet(_ context.Context, id uuid.UUID, relation model.Relation, value string) (*model.User, model.SetOp, error) {
	if !relation.Valid() {
		return nil, 0, fmt.Errorf("%w: relation %q", errs.ErrValidation, relation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, 0, errs.ErrNotFound
	}
	set := u.Set(relation)
	next, op := toggle.Toggle(*set, value)
	*set = next
	return copyUser(u), op, nil
}

// Delete removes the user.
func (s *AccountStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func copyUser(u *model.User) *model.User {
	c := *u
	c.LikedSongs = append([]string{}, u.LikedSongs...)
	c.LikedPlaylists = append([]string{}, u.LikedPlaylists...)
	c.UploadedSongs = append([]string{}, u.UploadedSongs...)
	c.CreatedPlaylists = append([]string{}, u.CreatedPlaylists...)
	return &c
}
