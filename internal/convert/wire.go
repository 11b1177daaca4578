// Package convert maps domain models to apiv1 wire messages and back.
package convert

import (
	"fmt"

	apiv1 "github.com/and161185/tunehub/internal/api/v1"
	"github.com/and161185/tunehub/internal/errs"
	"github.com/and161185/tunehub/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ToWireIdentity converts a domain identity.
func ToWireIdentity(id model.Identity) apiv1.Identity {
	return apiv1.Identity{
		ID:               id.ID.String(),
		Email:            id.Email,
		Username:         id.Username,
		LikedSongs:       nonNil(id.LikedSongs),
		LikedPlaylists:   nonNil(id.LikedPlaylists),
		UploadedSongs:    nonNil(id.UploadedSongs),
		CreatedPlaylists: nonNil(id.CreatedPlaylists),
	}
}

// FromWireIdentity parses a wire identity.
func FromWireIdentity(w apiv1.Identity) (model.Identity, error) {
	id, err := uuid.FromString(w.ID)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: bad user id: %v", errs.ErrValidation, err)
	}
	return model.Identity{
		ID:               id,
		Email:            w.Email,
		Username:         w.Username,
		LikedSongs:       nonNil(w.LikedSongs),
		LikedPlaylists:   nonNil(w.LikedPlaylists),
		UploadedSongs:    nonNil(w.UploadedSongs),
		CreatedPlaylists: nonNil(w.CreatedPlaylists),
	}, nil
}

// ToWireTokens converts an issued pair.
func ToWireTokens(t model.Tokens) apiv1.TokenPair {
	return apiv1.TokenPair{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		AccessExpiresAt:  t.AccessExp.UTC(),
		RefreshExpiresAt: t.RefreshExp.UTC(),
	}
}

// ToWireSession converts a login/refresh result.
func ToWireSession(s model.Session) *apiv1.SessionResponse {
	return &apiv1.SessionResponse{Tokens: ToWireTokens(s.Tokens), User: ToWireIdentity(s.User)}
}

// ToWireUser wraps an identity in a UserResponse.
func ToWireUser(id model.Identity) *apiv1.UserResponse {
	return &apiv1.UserResponse{User: ToWireIdentity(id)}
}

// ParseKind maps the wire kind ("song", "playlist") to model.Kind.
func ParseKind(s string) (model.Kind, error) {
	switch k := model.Kind(s); k {
	case model.KindSong, model.KindPlaylist:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", errs.ErrValidation, s)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
