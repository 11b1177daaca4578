// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects an issued access/refresh token pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time // access token expiry (for diagnostics)
	RefreshExp   time.Time // refresh token expiry; persisted with the session
}

// User represents an account stored on the server. Only the argon2id hash of the password is kept.
type User struct {
	ID               uuid.UUID // PK
	Email            string    // unique
	Username         string    // unique
	PwdHash          string    // PHC-encoded argon2id
	LikedSongs       []string
	LikedPlaylists   []string
	UploadedSongs    []string
	CreatedPlaylists []string
	CreatedAt        time.Time
}

// Identity is the canonical, password-free view of a user handed to clients.
// It is a snapshot: later relationship changes are not reflected until re-read.
type Identity struct {
	ID               uuid.UUID
	Email            string
	Username         string
	LikedSongs       []string
	LikedPlaylists   []string
	UploadedSongs    []string
	CreatedPlaylists []string
}

// Identity returns a detached snapshot of u.
func (u *User) Identity() Identity {
	return Identity{
		ID:               u.ID,
		Email:            u.Email,
		Username:         u.Username,
		LikedSongs:       cloneSet(u.LikedSongs),
		LikedPlaylists:   cloneSet(u.LikedPlaylists),
		UploadedSongs:    cloneSet(u.UploadedSongs),
		CreatedPlaylists: cloneSet(u.CreatedPlaylists),
	}
}

// Session is the result of login, signup or refresh.
type Session struct {
	Tokens Tokens
	User   Identity
}

// SessionRecord is the persisted half of a refresh token.
type SessionRecord struct {
	UserID       uuid.UUID
	RefreshToken string // plaintext on the way in; drivers persist its fingerprint only
	ExpiresAt    time.Time
}

// Relation names one of the four set-valued relationship fields of a user.
type Relation string

const (
	LikedSongs       Relation = "liked_songs"
	LikedPlaylists   Relation = "liked_playlists"
	UploadedSongs    Relation = "uploaded_songs"
	CreatedPlaylists Relation = "created_playlists"
)

// Valid reports whether r is a known relation.
func (r Relation) Valid() bool {
	switch r {
	case LikedSongs, LikedPlaylists, UploadedSongs, CreatedPlaylists:
		return true
	}
	return false
}

// Set returns a pointer to the slice backing r on u, or nil for unknown relations.
func (u *User) Set(r Relation) *[]string {
	switch r {
	case LikedSongs:
		return &u.LikedSongs
	case LikedPlaylists:
		return &u.LikedPlaylists
	case UploadedSongs:
		return &u.UploadedSongs
	case CreatedPlaylists:
		return &u.CreatedPlaylists
	}
	return nil
}

// SetOp is a set mutation emitted by the toggle operator.
type SetOp int

const (
	OpAdd SetOp = iota + 1
	OpRemove
)

func (o SetOp) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// Kind is the target type of a relationship mutation.
type Kind string

const (
	KindSong     Kind = "song"
	KindPlaylist Kind = "playlist"
)

func cloneSet(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
