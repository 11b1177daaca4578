package apiv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tunehub.v1.Session"

// SessionServer is implemented by the server handlers.
type SessionServer interface {
	Signup(context.Context, *SignupRequest) (*SessionResponse, error)
	Login(context.Context, *LoginRequest) (*SessionResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	Refresh(context.Context, *RefreshRequest) (*SessionResponse, error)
	GetUser(context.Context, *GetUserRequest) (*UserResponse, error)
	ToggleLike(context.Context, *ToggleLikeRequest) (*UserResponse, error)
	AddUpload(context.Context, *AddUploadRequest) (*UserResponse, error)
	RemoveCreatedPlaylist(context.Context, *RemoveCreatedPlaylistRequest) (*UserResponse, error)
	DeleteAccount(context.Context, *DeleteAccountRequest) (*DeleteAccountResponse, error)
}

// UnimplementedSessionServer answers every method with codes.Unimplemented.
type UnimplementedSessionServer struct{}

func (UnimplementedSessionServer) Signup(context.Context, *SignupRequest) (*SessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Signup not implemented")
}
func (UnimplementedSessionServer) Login(context.Context, *LoginRequest) (*SessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedSessionServer) Logout(context.Context, *LogoutRequest) (*LogoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedSessionServer) Refresh(context.Context, *RefreshRequest) (*SessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
}
func (UnimplementedSessionServer) GetUser(context.Context, *GetUserRequest) (*UserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUser not implemented")
}
func (UnimplementedSessionServer) ToggleLike(context.Context, *ToggleLikeRequest) (*UserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ToggleLike not implemented")
}
func (UnimplementedSessionServer) AddUpload(context.Context, *AddUploadRequest) (*UserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddUpload not implemented")
}
func (UnimplementedSessionServer) RemoveCreatedPlaylist(context.Context, *RemoveCreatedPlaylistRequest) (*UserResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveCreatedPlaylist not implemented")
}
func (UnimplementedSessionServer) DeleteAccount(context.Context, *DeleteAccountRequest) (*DeleteAccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteAccount not implemented")
}

// FullMethod returns "/tunehub.v1.Session/<method>".
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

func unary[Req, Resp any](method string, call func(SessionServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SessionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SessionServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SessionServiceDesc describes tunehub.v1.Session for grpc.Server.RegisterService.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Signup", Handler: unary("Signup", SessionServer.Signup)},
		{MethodName: "Login", Handler: unary("Login", SessionServer.Login)},
		{MethodName: "Logout", Handler: unary("Logout", SessionServer.Logout)},
		{MethodName: "Refresh", Handler: unary("Refresh", SessionServer.Refresh)},
		{MethodName: "GetUser", Handler: unary("GetUser", SessionServer.GetUser)},
		{MethodName: "ToggleLike", Handler: unary("ToggleLike", SessionServer.ToggleLike)},
		{MethodName: "AddUpload", Handler: unary("AddUpload", SessionServer.AddUpload)},
		{MethodName: "RemoveCreatedPlaylist", Handler: unary("RemoveCreatedPlaylist", SessionServer.RemoveCreatedPlaylist)},
		{MethodName: "DeleteAccount", Handler: unary("DeleteAccount", SessionServer.DeleteAccount)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tunehub/v1/session",
}

// RegisterSessionServer registers srv on s.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}
