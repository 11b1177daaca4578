// Package grpcserver exposes the tunehub.v1.Session gRPC API handlers.
package grpcserver

import (
	"context"
	"net"

	apiv1 "github.com/and161185/tunehub/internal/api/v1"
	"github.com/and161185/tunehub/internal/convert"
	"github.com/and161185/tunehub/internal/service"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server wires services into gRPC handlers.
type Server struct {
	apiv1.UnimplementedSessionServer
	auth service.AuthService
	lib  service.LibraryService
	log  *zap.Logger
}

var _ apiv1.SessionServer = (*Server)(nil)

// New constructs a gRPC server with injected services. A nil logger discards logs.
func New(auth service.AuthService, lib service.LibraryService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, lib: lib, log: log.Named("grpc")}
}

// NewGRPCServer builds a grpc.Server with recovery, auth and logging interceptors
// (in that order) and registers srv on it.
func NewGRPCServer(srv *Server, tokens AccessValidator, log *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		RecoverUnary(log),
		AuthUnary(tokens, log),
		LoggingUnary(log),
	))
	gs := grpc.NewServer(opts...)
	apiv1.RegisterSessionServer(gs, srv)
	return gs
}

// --- Auth ---

// Signup validates fields, creates the account and opens a session.
func (s *Server) Signup(ctx context.Context, req *apiv1.SignupRequest) (*apiv1.SessionResponse, error) {
	if err := validateSignup(req.Email, req.Username, req.Password); err != nil {
		return nil, toStatus(s.log, "signup", err)
	}
	sess, err := s.auth.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		return nil, toStatus(s.log, "signup", err)
	}
	return convert.ToWireSession(sess), nil
}

func remoteIP(ctx context.Context) string {
	addr := remoteAddr(ctx)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// Login authenticates a user with per-address rate limiting.
func (s *Server) Login(ctx context.Context, req *apiv1.LoginRequest) (*apiv1.SessionResponse, error) {
	if err := validateLogin(req.Username, req.Password); err != nil {
		return nil, toStatus(s.log, "login", err)
	}
	sess, err := s.auth.LoginWithIP(ctx, req.Username, req.Password, remoteIP(ctx))
	if err != nil {
		return nil, toStatus(s.log, "login", err)
	}
	return convert.ToWireSession(sess), nil
}

// Logout revokes the session of the given refresh token.
func (s *Server) Logout(ctx context.Context, req *apiv1.LogoutRequest) (*apiv1.LogoutResponse, error) {
	if err := s.auth.Logout(ctx, req.RefreshToken); err != nil {
		return nil, toStatus(s.log, "logout", err)
	}
	return &apiv1.LogoutResponse{}, nil
}

// Refresh rotates the refresh token.
func (s *Server) Refresh(ctx context.Context, req *apiv1.RefreshRequest) (*apiv1.SessionResponse, error) {
	sess, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(s.log, "refresh", err)
	}
	return convert.ToWireSession(sess), nil
}

// DeleteAccount deletes the caller's account.
func (s *Server) DeleteAccount(ctx context.Context, _ *apiv1.DeleteAccountRequest) (*apiv1.DeleteAccountResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.auth.DeleteAccount(ctx, userID); err != nil {
		return nil, toStatus(s.log, "delete account", err)
	}
	return &apiv1.DeleteAccountResponse{}, nil
}

// --- Library ---

// GetUser returns the caller's current identity.
func (s *Server) GetUser(ctx context.Context, _ *apiv1.GetUserRequest) (*apiv1.UserResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.lib.GetUser(ctx, userID)
	if err != nil {
		return nil, toStatus(s.log, "get user", err)
	}
	return convert.ToWireUser(id), nil
}

// ToggleLike likes or unlikes a song or playlist.
func (s *Server) ToggleLike(ctx context.Context, req *apiv1.ToggleLikeRequest) (*apiv1.UserResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := convert.ParseKind(req.Kind)
	if err != nil {
		return nil, toStatus(s.log, "toggle like", err)
	}
	id, err := s.lib.ToggleLike(ctx, userID, kind, req.TargetID)
	if err != nil {
		return nil, toStatus(s.log, "toggle like", err)
	}
	return convert.ToWireUser(id), nil
}

// AddUpload records an uploaded song or created playlist.
func (s *Server) AddUpload(ctx context.Context, req *apiv1.AddUploadRequest) (*apiv1.UserResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := convert.ParseKind(req.Kind)
	if err != nil {
		return nil, toStatus(s.log, "add upload", err)
	}
	id, err := s.lib.AddUpload(ctx, userID, kind, req.TargetID)
	if err != nil {
		return nil, toStatus(s.log, "add upload", err)
	}
	return convert.ToWireUser(id), nil
}

// RemoveCreatedPlaylist drops a playlist from the caller's created playlists.
func (s *Server) RemoveCreatedPlaylist(ctx context.Context, req *apiv1.RemoveCreatedPlaylistRequest) (*apiv1.UserResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.lib.RemoveCreatedPlaylist(ctx, userID, req.PlaylistID)
	if err != nil {
		return nil, toStatus(s.log, "remove playlist", err)
	}
	return convert.ToWireUser(id), nil
}

// caller returns the user ID placed in ctx by AuthUnary.
func (s *Server) caller(ctx context.Context) (uuid.UUID, error) {
	id, ok := UserIDFromCtx(ctx)
	if !ok || id == uuid.Nil {
		return uuid.Nil, status.Error(codes.Unauthenticated, "no auth")
	}
	return id, nil
}
