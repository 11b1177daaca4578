// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AccountRepository stores user accounts and their relationship sets.
type AccountRepository interface {
	// Create inserts a new user. Duplicate email or username yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateSet atomically adds value to or removes it from relation and returns the updated user.
	UpdateSet(ctx context.Context, id uuid.UUID, relation model.Relation, op model.SetOp, value string) (*model.User, error)
	// ToggleSet atomically flips membership of value in relation. The applied op is returned
	// alongside the updated user.
	ToggleSet(ctx context.Context, id uuid.UUID, relation model.Relation, value string) (*model.User, model.SetOp, error)
	// Delete removes the user. Unknown IDs yield errs.ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}
