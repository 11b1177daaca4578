package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/tunehub/internal/crypto"
	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// SessionRepo implements SessionRepository using PostgreSQL. Rows are keyed by the
// SHA-256 fingerprint of the refresh token.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

const insertSession = `
INSERT INTO sessions (token_hash, user_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (token_hash) DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at`

// Save upserts the session row.
func (r *SessionRepo) Save(ctx context.Context, rec model.SessionRecord) error {
	_, err := r.db.Pool.Exec(ctx, insertSession, crypto.Fingerprint(rec.RefreshToken), rec.UserID, rec.ExpiresAt)
	return errs.Unavailable(err)
}

// Find loads the session row for refreshToken.
func (r *SessionRepo) Find(ctx context.Context, refreshToken string) (*model.SessionRecord, error) {
	const q = `SELECT user_id, expires_at FROM sessions WHERE token_hash=$1`
	rec := model.SessionRecord{RefreshToken: refreshToken}
	err := r.db.Pool.QueryRow(ctx, q, crypto.Fingerprint(refreshToken)).Scan(&rec.UserID, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Unavailable(err)
	}
	return &rec, nil
}

// Remove deletes the session row if present.
func (r *SessionRepo) Remove(ctx context.Context, refreshToken string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash=$1`, crypto.Fingerprint(refreshToken))
	return errs.Unavailable(err)
}

// Rotate deletes the old row and inserts the new one in a single transaction.
// Of two concurrent rotations of the same token only one sees a deleted row.
func (r *SessionRepo) Rotate(ctx context.Context, oldToken string, next model.SessionRecord) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errs.Unavailable(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = errs.Unavailable(e)
		}
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE token_hash=$1`, crypto.Fingerprint(oldToken))
	if err != nil {
		return errs.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if _, err = tx.Exec(ctx, insertSession, crypto.Fingerprint(next.RefreshToken), next.UserID, next.ExpiresAt); err != nil {
		return errs.Unavailable(err)
	}
	return nil
}

// RemoveAllForUser deletes every session of userID.
func (r *SessionRepo) RemoveAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id=$1`, userID)
	return errs.Unavailable(err)
}

// DeleteExpired deletes rows whose expiry is before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, errs.Unavailable(err)
	}
	return tag.RowsAffected(), nil
}
