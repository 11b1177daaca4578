package grpcserver

import (
	"context"
	"errors"
	"strings"

	apiv1 "github.com/and161185/tunehub/internal/api/v1"
	"github.com/and161185/tunehub/internal/token"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "tunehub.userID"

// WithUserID stores authenticated user ID in context.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromCtx fetches user ID from context.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// AccessValidator verifies access tokens.
type AccessValidator interface {
	ValidateAccess(raw string) (*token.Claims, error)
}

// publicMethods do not require an access token; Logout and Refresh
// authenticate with the refresh token in the request body.
var publicMethods = map[string]bool{
	apiv1.FullMethod("Signup"):  true,
	apiv1.FullMethod("Login"):   true,
	apiv1.FullMethod("Logout"):  true,
	apiv1.FullMethod("Refresh"): true,
}

// AuthUnary verifies "authorization: Bearer <access JWT>" for every tunehub
// method outside publicMethods and stores the subject in the context.
// Other services (health, reflection) pass through.
func AuthUnary(v AccessValidator, log *zap.Logger) grpc.UnaryServerInterceptor {
	prefix := "/" + apiv1.ServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) || publicMethods[info.FullMethod] {
			return next(ctx, req)
		}
		raw, err := bearerTokenFromMD(ctx)
		if err != nil {
			log.Warn("request without bearer token", zap.String("method", info.FullMethod))
			return nil, status.Error(codes.Unauthenticated, "no auth")
		}
		claims, err := v.ValidateAccess(raw)
		if err != nil {
			log.Warn("access token rejected", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "invalid access token")
		}
		id, err := claims.UserID()
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "bad subject")
		}
		return next(WithUserID(ctx, id), req)
	}
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
