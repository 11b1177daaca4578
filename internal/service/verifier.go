package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/and161185/tunehub/internal/repository"
)

// SecretHasher is a one-way password hash capability.
type SecretHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

// CredentialVerifier checks a username/password pair against the stored hash.
// It never writes.
type CredentialVerifier struct {
	users  repository.AccountRepository
	hasher SecretHasher
}

// NewCredentialVerifier constructs a verifier.
func NewCredentialVerifier(users repository.AccountRepository, hasher SecretHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Verify returns the matching user. An unknown username matches both
// errs.ErrInvalidCredentials and errs.ErrAccountNotFound; a wrong password matches
// only errs.ErrInvalidCredentials. Store and hasher failures wrap errs.ErrUnavailable.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*model.User, error) {
	u, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidCredentials, errs.ErrAccountNotFound)
		}
		return nil, errs.Unavailable(err)
	}
	ok, err := v.hasher.Verify(password, u.PwdHash)
	if err != nil {
		return nil, errs.Unavailable(fmt.Errorf("verify password hash: %w", err))
	}
	if !ok {
		return nil, errs.ErrInvalidCredentials
	}
	return u, nil
}
