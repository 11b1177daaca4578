package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"time"

	apiv1 "github.com/and161185/tunehub/internal/api/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// sessionAPI is the subset of *apiv1.SessionClient the commands call.
type sessionAPI interface {
	Signup(ctx context.Context, in *apiv1.SignupRequest, opts ...grpc.CallOption) (*apiv1.SessionResponse, error)
	Login(ctx context.Context, in *apiv1.LoginRequest, opts ...grpc.CallOption) (*apiv1.SessionResponse, error)
	Logout(ctx context.Context, in *apiv1.LogoutRequest, opts ...grpc.CallOption) (*apiv1.LogoutResponse, error)
	Refresh(ctx context.Context, in *apiv1.RefreshRequest, opts ...grpc.CallOption) (*apiv1.SessionResponse, error)
	GetUser(ctx context.Context, in *apiv1.GetUserRequest, opts ...grpc.CallOption) (*apiv1.UserResponse, error)
	ToggleLike(ctx context.Context, in *apiv1.ToggleLikeRequest, opts ...grpc.CallOption) (*apiv1.UserResponse, error)
	AddUpload(ctx context.Context, in *apiv1.AddUploadRequest, opts ...grpc.CallOption) (*apiv1.UserResponse, error)
	RemoveCreatedPlaylist(ctx context.Context, in *apiv1.RemoveCreatedPlaylistRequest, opts ...grpc.CallOption) (*apiv1.UserResponse, error)
	DeleteAccount(ctx context.Context, in *apiv1.DeleteAccountRequest, opts ...grpc.CallOption) (*apiv1.DeleteAccountResponse, error)
}

var _ sessionAPI = (*apiv1.SessionClient)(nil)

// refreshSkew renews the access token slightly before it expires.
const refreshSkew = 10 * time.Second

type app struct {
	api    sessionAPI
	out    io.Writer
	secure bool
	now    func() time.Time
}

type command func(ctx context.Context, args []string) error

func (a *app) commands() map[string]command {
	return map[string]command{
		"signup":         a.signup,
		"login":          a.login,
		"refresh":        a.refresh,
		"logout":         a.logout,
		"me":             a.me,
		"like":           a.like,
		"upload":         a.upload,
		"unown":          a.unown,
		"delete-account": a.deleteAccount,
	}
}

// authorized returns a call option carrying a valid access token, refreshing
// the stored session first when the access token is about to expire.
func (a *app) authorized(ctx context.Context) (grpc.CallOption, error) {
	tf, err := loadSession()
	if err != nil {
		return nil, err
	}
	now := a.now()
	if tf.AccessToken == "" || !now.Add(refreshSkew).Before(tf.AccessExpiresAt) {
		if tf.RefreshToken == "" || !now.Before(tf.RefreshExpiresAt) {
			return nil, errLoginRequired
		}
		resp, err := a.api.Refresh(ctx, &apiv1.RefreshRequest{RefreshToken: tf.RefreshToken})
		if err != nil {
			if status.Code(err) == codes.Unauthenticated {
				_ = clearSession()
				return nil, errLoginRequired
			}
			return nil, err
		}
		if err := saveSession(resp); err != nil {
			return nil, err
		}
		tf.AccessToken = resp.Tokens.AccessToken
	}
	return grpc.PerRPCCredentials(bearerCreds{token: tf.AccessToken, secure: a.secure}), nil
}

func (a *app) openSession(resp *apiv1.SessionResponse) error {
	if err := saveSession(resp); err != nil {
		return err
	}
	printJSON(a.out, resp.User)
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := newFlagSet("signup")
	email := fs.String("email", "", "email")
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *u == "" || *p == "" {
		return errors.New("need -email, -u and -p")
	}
	resp, err := a.api.Signup(ctx, &apiv1.SignupRequest{Email: *email, Username: *u, Password: *p})
	if err != nil {
		return err
	}
	return a.openSession(resp)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *u == "" || *p == "" {
		return errors.New("need -u and -p")
	}
	resp, err := a.api.Login(ctx, &apiv1.LoginRequest{Username: *u, Password: *p})
	if err != nil {
		return err
	}
	return a.openSession(resp)
}

func (a *app) refresh(ctx context.Context, _ []string) error {
	tf, err := loadSession()
	if err != nil {
		return err
	}
	if tf.RefreshToken == "" {
		return errLoginRequired
	}
	resp, err := a.api.Refresh(ctx, &apiv1.RefreshRequest{RefreshToken: tf.RefreshToken})
	if err != nil {
		return err
	}
	return a.openSession(resp)
}

// logout revokes the stored refresh token and forgets the local session even
// when the server call fails.
func (a *app) logout(ctx context.Context, _ []string) error {
	tf, err := loadSession()
	if errors.Is(err, errLoginRequired) {
		return nil
	}
	if err != nil {
		return err
	}
	_, rpcErr := a.api.Logout(ctx, &apiv1.LogoutRequest{RefreshToken: tf.RefreshToken})
	if err := clearSession(); err != nil {
		return err
	}
	return rpcErr
}

func (a *app) me(ctx context.Context, _ []string) error {
	auth, err := a.authorized(ctx)
	if err != nil {
		return err
	}
	resp, err := a.api.GetUser(ctx, &apiv1.GetUserRequest{}, auth)
	if err != nil {
		return err
	}
	printJSON(a.out, resp.User)
	return nil
}

func parseTarget(name string, args []string, needKind bool) (kind, id string, err error) {
	fs := newFlagSet(name)
	k := fs.String("kind", "song", "song|playlist")
	i := fs.String("id", "", "target id")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if *i == "" {
		return "", "", errors.New("need -id")
	}
	if needKind && *k != "song" && *k != "playlist" {
		return "", "", errors.New("-kind must be song or playlist")
	}
	return *k, *i, nil
}

func (a *app) like(ctx context.Context, args []string) error {
	kind, id, err := parseTarget("like", args, true)
	if err != nil {
		return err
	}
	auth, err := a.authorized(ctx)
	if err != nil {
		return err
	}
	resp, err := a.api.ToggleLike(ctx, &apiv1.ToggleLikeRequest{Kind: kind, TargetID: id}, auth)
	if err != nil {
		return err
	}
	printJSON(a.out, resp.User)
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	kind, id, err := parseTarget("upload", args, true)
	if err != nil {
		return err
	}
	auth, err := a.authorized(ctx)
	if err != nil {
		return err
	}
	resp, err := a.api.AddUpload(ctx, &apiv1.AddUploadRequest{Kind: kind, TargetID: id}, auth)
	if err != nil {
		return err
	}
	printJSON(a.out, resp.User)
	return nil
}

func (a *app) unown(ctx context.Context, args []string) error {
	_, id, err := parseTarget("unown", args, false)
	if err != nil {
		return err
	}
	auth, err := a.authorized(ctx)
	if err != nil {
		return err
	}
	resp, err := a.api.RemoveCreatedPlaylist(ctx, &apiv1.RemoveCreatedPlaylistRequest{PlaylistID: id}, auth)
	if err != nil {
		return err
	}
	printJSON(a.out, resp.User)
	return nil
}

func (a *app) deleteAccount(ctx context.Context, args []string) error {
	fs := newFlagSet("delete-account")
	yes := fs.Bool("yes", false, "confirm deletion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("refusing to delete the account without -yes")
	}
	auth, err := a.authorized(ctx)
	if err != nil {
		return err
	}
	if _, err := a.api.DeleteAccount(ctx, &apiv1.DeleteAccountRequest{}, auth); err != nil {
		return err
	}
	return clearSession()
}
