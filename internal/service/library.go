package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/and161185/tunehub/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// LibraryService mutates a user's relationship sets.
type LibraryService interface {
	// GetUser returns the current identity of id.
	GetUser(ctx context.Context, id uuid.UUID) (model.Identity, error)
	// ToggleLike likes targetID if not liked yet and unlikes it otherwise.
	ToggleLike(ctx context.Context, userID uuid.UUID, kind model.Kind, targetID string) (model.Identity, error)
	// AddUpload records an uploaded song or created playlist. Repeats are no-ops.
	AddUpload(ctx context.Context, userID uuid.UUID, kind model.Kind, targetID string) (model.Identity, error)
	// RemoveCreatedPlaylist drops playlistID from the created playlists.
	RemoveCreatedPlaylist(ctx context.Context, userID uuid.UUID, playlistID string) (model.Identity, error)
}

type LibraryServiceImpl struct {
	users repository.AccountRepository
	log   *zap.Logger
}

// NewLibraryService constructs LibraryService. A nil logger discards logs.
func NewLibraryService(users repository.AccountRepository, log *zap.Logger) *LibraryServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &LibraryServiceImpl{users: users, log: log.Named("library")}
}

func likedRelation(k model.Kind) (model.Relation, error) {
	switch k {
	case model.KindSong:
		return model.LikedSongs, nil
	case model.KindPlaylist:
		return model.LikedPlaylists, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", errs.ErrValidation, k)
}

func ownedRelation(k model.Kind) (model.Relation, error) {
	switch k {
	case model.KindSong:
		return model.UploadedSongs, nil
	case model.KindPlaylist:
		return model.CreatedPlaylists, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", errs.ErrValidation, k)
}

func validateTarget(userID uuid.UUID, targetID string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if targetID == "" {
		return fmt.Errorf("%w: empty target id", errs.ErrValidation)
	}
	return nil
}

// GetUser loads the account and returns its identity.
func (s *LibraryServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (model.Identity, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.Identity{}, storeError(err)
	}
	return u.Identity(), nil
}

// ToggleLike flips membership in a single store command.
func (s *LibraryServiceImpl) ToggleLike(ctx context.Context, userID uuid.UUID, kind model.Kind, targetID string) (model.Identity, error) {
	if err := validateTarget(userID, targetID); err != nil {
		return model.Identity{}, err
	}
	rel, err := likedRelation(kind)
	if err != nil {
		return model.Identity{}, err
	}
	u, op, err := s.users.ToggleSet(ctx, userID, rel, targetID)
	if err != nil {
		return model.Identity{}, storeError(err)
	}
	s.log.Debug("like toggled",
		zap.Stringer("user_id", userID),
		zap.String("kind", string(kind)),
		zap.String("target", targetID),
		zap.Stringer("op", op),
	)
	return u.Identity(), nil
}

// AddUpload adds targetID to uploaded songs or created playlists.
func (s *LibraryServiceImpl) AddUpload(ctx context.Context, userID uuid.UUID, kind model.Kind, targetID string) (model.Identity, error) {
	if err := validateTarget(userID, targetID); err != nil {
		return model.Identity{}, err
	}
	rel, err := ownedRelation(kind)
	if err != nil {
		return model.Identity{}, err
	}
	u, err := s.users.UpdateSet(ctx, userID, rel, model.OpAdd, targetID)
	if err != nil {
		return model.Identity{}, storeError(err)
	}
	return u.Identity(), nil
}

// RemoveCreatedPlaylist removes playlistID from created playlists.
func (s *LibraryServiceImpl) RemoveCreatedPlaylist(ctx context.Context, userID uuid.UUID, playlistID string) (model.Identity, error) {
	if err := validateTarget(userID, playlistID); err != nil {
		return model.Identity{}, err
	}
	u, err := s.users.UpdateSet(ctx, userID, model.CreatedPlaylists, model.OpRemove, playlistID)
	if err != nil {
		return model.Identity{}, storeError(err)
	}
	return u.Identity(), nil
}

// storeError keeps decision errors as they are and marks everything else unavailable.
func storeError(err error) error {
	if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrValidation) {
		return err
	}
	return errs.Unavailable(err)
}
