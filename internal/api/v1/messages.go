// Package apiv1 defines the tunehub.v1.Session gRPC service: its messages, a
// JSON codec, the service descriptor and a typed client.
package apiv1

import "time"

// Identity is the password-free user view.
type Identity struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Username         string   `json:"username"`
	LikedSongs       []string `json:"liked_songs"`
	LikedPlaylists   []string `json:"liked_playlists"`
	UploadedSongs    []string `json:"uploaded_songs"`
	CreatedPlaylists []string `json:"created_playlists"`
}

// TokenPair carries an access/refresh pair and their expiries.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// SessionResponse is returned by Signup, Login and Refresh.
type SessionResponse struct {
	Tokens TokenPair `json:"tokens"`
	User   Identity  `json:"user"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct{}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// GetUserRequest asks for the caller's own identity.
type GetUserRequest struct{}

// UserResponse wraps the current identity after a read or a library mutation.
type UserResponse struct {
	User Identity `json:"user"`
}

// ToggleLikeRequest likes or unlikes a song or playlist. Kind is "song" or "playlist".
type ToggleLikeRequest struct {
	Kind     string `json:"kind"`
	TargetID string `json:"target_id"`
}

// AddUploadRequest records an uploaded song or a created playlist.
type AddUploadRequest struct {
	Kind     string `json:"kind"`
	TargetID string `json:"target_id"`
}

type RemoveCreatedPlaylistRequest struct {
	PlaylistID string `json:"playlist_id"`
}

type DeleteAccountRequest struct{}

type DeleteAccountResponse struct{}
