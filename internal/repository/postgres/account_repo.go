package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, username, pwd_hash, liked_songs, liked_playlists, uploaded_songs, created_playlists, created_at`

// AccountRepo implements AccountRepository using PostgreSQL.
// Relationship sets are text[] columns mutated in place by single statements.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new user row.
func (r *AccountRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, email, username, pwd_hash)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Email, u.Username, u.PwdHash)
	if err != nil {
		if c, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: %s", errs.ErrAlreadyExists, c)
		}
		return errs.Unavailable(err)
	}
	return nil
}

// GetByID selects a user by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetByUsername selects a user by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

// GetByEmail selects a user by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// UpdateSet adds or removes value in one statement. Adding an existing member is a no-op.
func (r *AccountRepo) UpdateSet(ctx context.Context, id uuid.UUID, relation model.Relation, op model.SetOp, value string) (*model.User, error) {
	if !relation.Valid() {
		return nil, fmt.Errorf("%w: relation %q", errs.ErrValidation, relation)
	}
	col := string(relation)
	var expr string
	switch op {
	case model.OpAdd:
		expr = fmt.Sprintf(`CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END`, col)
	case model.OpRemove:
		expr = fmt.Sprintf(`array_remove(%s, $2)`, col)
	default:
		return nil, fmt.Errorf("%w: op %v", errs.ErrValidation, op)
	}
	q := `UPDATE users SET ` + col + ` = ` + expr + ` WHERE id=$1 RETURNING ` + userColumns
	return r.getOne(ctx, q, id, value)
}

// ToggleSet flips membership of value in one statement and derives the applied op
// from the returned row.
func (r *AccountRepo) ToggleSet(ctx context.Context, id uuid.UUID, relation model.Relation, value string) (*model.User, model.SetOp, error) {
	if !relation.Valid() {
		return nil, 0, fmt.Errorf("%w: relation %q", errs.ErrValidation, relation)
	}
	col := string(relation)
	q := fmt.Sprintf(`
UPDATE users SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN array_remove(%[1]s, $2) ELSE array_append(%[1]s, $2) END
WHERE id=$1 RETURNING `+userColumns, col)
	u, err := r.getOne(ctx, q, id, value)
	if err != nil {
		return nil, 0, err
	}
	op := model.OpRemove
	for _, v := range *u.Set(relation) {
		if v == value {
			op = model.OpAdd
			break
		}
	}
	return u, op, nil
}

// Delete removes the user row.
func (r *AccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return errs.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *AccountRepo) getOne(ctx context.Context, q string, args ...any) (*model.User, error) {
	var u model.User
	err := r.db.Pool.QueryRow(ctx, q, args...).Scan(
		&u.ID, &u.Email, &u.Username, &u.PwdHash,
		&u.LikedSongs, &u.LikedPlaylists, &u.UploadedSongs, &u.CreatedPlaylists,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.Unavailable(err)
	}
	return &u, nil
}
