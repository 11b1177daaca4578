package repository

import (
	"context"
	"time"

	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
)

// SessionRepository persists refresh-token sessions. Implementations key records by
// the token fingerprint and never store the plaintext token.
type SessionRepository interface {
	// Save inserts or replaces the record for rec.RefreshToken.
	Save(ctx context.Context, rec model.SessionRecord) error
	// Find returns the record for refreshToken or errs.ErrNotFound.
	Find(ctx context.Context, refreshToken string) (*model.SessionRecord, error)
	// Remove deletes the record for refreshToken. Absence is not an error.
	Remove(ctx context.Context, refreshToken string) error
	// Rotate atomically deletes oldToken and saves next. If oldToken is already
	// gone nothing is saved and errs.ErrNotFound is returned.
	Rotate(ctx context.Context, oldToken string, next model.SessionRecord) error
	// RemoveAllForUser revokes every session of userID.
	RemoveAllForUser(ctx context.Context, userID uuid.UUID) error
	// DeleteExpired drops records that expired before now and reports how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
